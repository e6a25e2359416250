// Package config centralizes protocol constants and the flag parsing
// shared by the three CLI executables (upload, download, start-server).
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iluksbr/reliudp/internal/wire"
)

// Protocol and resource constants shared by the wire codec, the engine,
// and both CLI executables.
const (
	DataMaxSize    = wire.DataMaxSize
	MaxFileSize    = 100 * 1024 * 1024 // 100 MiB
	FlushThreshold = 50 * 1024         // flush buffered writes at >= 50 kB

	ClientInactivityTimeout = 15 * time.Second
	ServerSessionHardCap    = 30 * time.Minute
	ServerIdleTimeout       = 30 * time.Second
	ServerEvictionGrace     = 2 * time.Second

	SocketReadTimeout = 1 * time.Second
	MailboxPollSleep  = 10 * time.Millisecond

	DefaultHost     = "localhost"
	DefaultPort     = 8888
	DefaultStorage  = "./server/files"
	DefaultProtocol = "udp_saw"
)

// Strategy selects the error-recovery strategy of a session.
type Strategy string

const (
	StrategySaW Strategy = "udp_saw"
	StrategySR  Strategy = "udp_sr"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySaW, StrategySR:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown protocol %q (want udp_saw or udp_sr)", s)
	}
}

// Verbosity controls the logging level selected by -v/-q.
type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityVerbose
	VerbosityQuiet
)

// Common holds the flags shared by all three executables.
type Common struct {
	Host      string
	Port      int
	Strategy  Strategy
	Verbosity Verbosity
	DropRate  float64
	DropSeed  int64
}

// Upload is the parsed configuration for the `upload` executable.
type Upload struct {
	Common
	SrcDir string
	Name   string
}

// Download is the parsed configuration for the `download` executable.
type Download struct {
	Common
	DstDir string
	Name   string
}

// Server is the parsed configuration for the `start-server` executable.
type Server struct {
	Common
	StorageDir string
}

func finishCommon(fs *flag.FlagSet, c *Common, protoFlag *string, verbose, quiet *bool) error {
	strat, err := ParseStrategy(*protoFlag)
	if err != nil {
		return err
	}
	c.Strategy = strat
	switch {
	case *verbose && *quiet:
		return fmt.Errorf("-v and -q are mutually exclusive")
	case *verbose:
		c.Verbosity = VerbosityVerbose
	case *quiet:
		c.Verbosity = VerbosityQuiet
	default:
		c.Verbosity = VerbosityNormal
	}
	return nil
}

// ParseUploadArgs parses `upload -H <addr> -p <port> -s <srcdir> -n <name> [-r strategy] [-v|-q]`.
func ParseUploadArgs(args []string) (Upload, error) {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var cfg Upload
	proto := fs.String("r", DefaultProtocol, "error recovery protocol: udp_saw or udp_sr")
	fs.StringVar(&cfg.Host, "H", DefaultHost, "server address")
	fs.IntVar(&cfg.Port, "p", DefaultPort, "server port")
	fs.Float64Var(&cfg.DropRate, "drop-rate", 0, "lab-only: probabilistic send drop rate [0,1)")
	fs.Int64Var(&cfg.DropSeed, "seed", 0, "lab-only: fault injector PRNG seed")
	fs.StringVar(&cfg.SrcDir, "s", "", "source directory")
	fs.StringVar(&cfg.Name, "n", "", "file name")
	verbose := fs.Bool("v", false, "increase output verbosity")
	quiet := fs.Bool("q", false, "decrease output verbosity")
	if err := fs.Parse(args); err != nil {
		return Upload{}, err
	}
	if cfg.SrcDir == "" || cfg.Name == "" {
		return Upload{}, fmt.Errorf("both -s <srcdir> and -n <name> are required")
	}
	if err := finishCommon(fs, &cfg.Common, proto, verbose, quiet); err != nil {
		return Upload{}, err
	}
	return cfg, nil
}

// ParseDownloadArgs parses `download -H <addr> -p <port> -d <dstdir> -n <name> [-r strategy] [-v|-q]`.
func ParseDownloadArgs(args []string) (Download, error) {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	var cfg Download
	proto := fs.String("r", DefaultProtocol, "error recovery protocol: udp_saw or udp_sr")
	fs.StringVar(&cfg.Host, "H", DefaultHost, "server address")
	fs.IntVar(&cfg.Port, "p", DefaultPort, "server port")
	fs.Float64Var(&cfg.DropRate, "drop-rate", 0, "lab-only: probabilistic send drop rate [0,1)")
	fs.Int64Var(&cfg.DropSeed, "seed", 0, "lab-only: fault injector PRNG seed")
	fs.StringVar(&cfg.DstDir, "d", "", "destination directory")
	fs.StringVar(&cfg.Name, "n", "", "file name")
	verbose := fs.Bool("v", false, "increase output verbosity")
	quiet := fs.Bool("q", false, "decrease output verbosity")
	if err := fs.Parse(args); err != nil {
		return Download{}, err
	}
	if cfg.DstDir == "" || cfg.Name == "" {
		return Download{}, fmt.Errorf("both -d <dstdir> and -n <name> are required")
	}
	if err := finishCommon(fs, &cfg.Common, proto, verbose, quiet); err != nil {
		return Download{}, err
	}
	return cfg, nil
}

// ParseServerArgs parses `start-server -H <addr> -p <port> -s <storagedir> [-r strategy] [-v|-q]`.
func ParseServerArgs(args []string) (Server, error) {
	fs := flag.NewFlagSet("start-server", flag.ContinueOnError)
	var cfg Server
	proto := fs.String("r", DefaultProtocol, "error recovery protocol: udp_saw or udp_sr")
	fs.StringVar(&cfg.Host, "H", DefaultHost, "service IP address")
	fs.IntVar(&cfg.Port, "p", DefaultPort, "service port")
	fs.Float64Var(&cfg.DropRate, "drop-rate", 0, "lab-only: probabilistic send drop rate [0,1)")
	fs.Int64Var(&cfg.DropSeed, "seed", 0, "lab-only: fault injector PRNG seed")
	fs.StringVar(&cfg.StorageDir, "s", defaultStorageDir(), "storage dir path")
	verbose := fs.Bool("v", false, "increase output verbosity")
	quiet := fs.Bool("q", false, "decrease output verbosity")
	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}
	if err := finishCommon(fs, &cfg.Common, proto, verbose, quiet); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func defaultStorageDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return DefaultStorage
	}
	return wd + "/server/files"
}
