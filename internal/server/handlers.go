package server

import (
	"path/filepath"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/digest"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/wire"
)

// handleUpload services one UPLOAD request: validate, then either run
// the receiver side of the transfer or fail the session with the
// matching ERROR code.
func handleUpload(s *engine.Session, storageDir string, strategy engine.StrategyKind, first wire.Message) {
	size, name, clientMD5, err := wire.ParseUpload(first)
	if err != nil {
		s.Log.WithError(err).Debug("server: malformed UPLOAD")
		return
	}
	path := safeJoin(storageDir, name)

	switch {
	case storage.Exists(path):
		failSession(s, wire.FileAlreadyExists)
		return
	case size > config.MaxFileSize:
		failSession(s, wire.FileTooBig)
		return
	}

	writer, err := storage.CreateWriter(path, config.FlushThreshold)
	if err != nil {
		s.Log.WithError(err).Error("server: creating file for upload")
		failSession(s, wire.FileWriteError)
		return
	}

	firstDataSeq := uint32(1)
	if strategy == engine.StrategySR {
		firstDataSeq = 0
	}
	if err := engine.Handshake(s, wire.NewAck(0), firstDataSeq); err != nil {
		if err != engine.ErrPeerError {
			s.Log.WithError(err).Error("server: acking upload handshake")
		}
		return
	}

	s.Progress = func(bytesDone int64) { s.Log.WithField("bytes", bytesDone).Debug("server: upload progress") }
	if err := engine.RunUploadReceiver(s, strategy, writer, size, clientMD5); err != nil {
		s.Log.WithError(err).Warn("server: upload transfer failed")
		return
	}
	s.Log.Info("server: upload complete")
}

// handleDownload services one DOWNLOAD request: validate, reply
// ACK_DOWNLOAD with the file size, then run the sender side of the
// transfer.
func handleDownload(s *engine.Session, storageDir string, strategy engine.StrategyKind, first wire.Message) {
	name, err := wire.ParseDownload(first)
	if err != nil {
		s.Log.WithError(err).Debug("server: malformed DOWNLOAD")
		return
	}
	path := safeJoin(storageDir, name)

	if !storage.Exists(path) {
		failSession(s, wire.FileNotFound)
		return
	}
	reader, err := storage.OpenReader(path)
	if err != nil {
		s.Log.WithError(err).Error("server: opening file for download")
		failSession(s, wire.FileNotFound)
		return
	}
	defer reader.Close()

	sourceMD5, err := digest.HashFile(path)
	if err != nil {
		s.Log.WithError(err).Error("server: hashing file for download")
		return
	}

	// No DATA ever flows from a download client back to the server, so
	// firstDataSeq has no proof-of-receipt case to watch for here; the
	// client's explicit ACK(0) (sent once it has parsed ACK_DOWNLOAD) is
	// the only confirmation this handshake can terminate on.
	if err := engine.Handshake(s, wire.NewAckDownload(reader.Size()), 0); err != nil {
		if err != engine.ErrPeerError {
			s.Log.WithError(err).Error("server: acking download request")
		}
		return
	}

	s.Progress = func(bytesDone int64) { s.Log.WithField("bytes", bytesDone).Debug("server: download progress") }
	if err := engine.RunDownloadSender(s, strategy, reader, sourceMD5); err != nil {
		s.Log.WithError(err).Warn("server: download transfer failed")
		return
	}
	s.Log.Info("server: download complete")
}

// failSession sends the given ERROR and returns; no DATA has flowed yet
// at any of these validation points, so there is nothing for a teardown
// round to flush or acknowledge.
func failSession(s *engine.Session, code wire.ErrorCode) {
	if err := s.Send(wire.NewError(code)); err != nil {
		s.Log.WithError(err).Debug("server: sending ERROR")
		return
	}
	s.Log.WithField("code", code).Info("server: session failed validation")
}

// safeJoin confines a client-supplied filename to storageDir, refusing
// to let ".." or an absolute path escape it.
func safeJoin(storageDir, name string) string {
	clean := filepath.Clean("/" + name)
	return filepath.Join(storageDir, clean)
}
