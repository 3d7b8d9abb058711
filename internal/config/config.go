package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Language string        `mapstructure:"language"`
	LogLevel string        `mapstructure:"log_level"`
	Paths    PathsConfig   `mapstructure:"paths"`
	Learner  LearnerConfig `mapstructure:"learner"`
	Encoder  EncoderConfig `mapstructure:"encoder"`
	Server   ServerConfig  `mapstructure:"server"`
}

type PathsConfig struct {
	CorpusPath     string `mapstructure:"corpus_path"`
	ArtifactDir    string `mapstructure:"artifact_dir"`
	WordDictPath   string `mapstructure:"word_dict_path"`
	TokenizerModel string `mapstructure:"tokenizer_model"`
}

type LearnerConfig struct {
	MinFrequency  int    `mapstructure:"min_frequency"`
	MaxCandidates int    `mapstructure:"max_candidates"`
	TopN          int    `mapstructure:"top_n"`
	Refine        bool   `mapstructure:"refine"`
	Workers       int    `mapstructure:"workers"`
	Letters       string `mapstructure:"letters"`
}

type EncoderConfig struct {
	Depth     int `mapstructure:"depth"`
	Width     int `mapstructure:"width"`
	MinLength int `mapstructure:"min_length"`
	CacheSize int `mapstructure:"cache_size"`
	Workers   int `mapstructure:"workers"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Language: "he",
		LogLevel: "info",
		Paths: PathsConfig{
			CorpusPath:     "data/corpus.txt",
			ArtifactDir:    "artifacts/splinter",
			WordDictPath:   "",
			TokenizerModel: "",
		},
		Learner: LearnerConfig{
			MinFrequency:  10,
			MaxCandidates: 3,
			TopN:          8000,
			Refine:        true,
			Workers:       0,
			Letters:       "",
		},
		Encoder: EncoderConfig{
			Depth:     3,
			Width:     3,
			MinLength: 3,
			CacheSize: 0,
			Workers:   0,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    65536,
			RequestTimeout:  30,
			ShutdownTimeout: 10,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("language", defaults.Language, "Language identifier (he|ar|ms|gez)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("paths-corpus-path", defaults.Paths.CorpusPath, "Path to the training corpus (one document per line)")
	fs.String("paths-artifact-dir", defaults.Paths.ArtifactDir, "Directory holding the reduction table and symbol maps")
	fs.String("paths-word-dict-path", defaults.Paths.WordDictPath, "Word frequency cache file (default: <artifact-dir>/words_dict.json)")
	fs.String("paths-tokenizer-model", defaults.Paths.TokenizerModel, "SentencePiece model trained on the encoded corpus")
	fs.Int("learner-min-frequency", defaults.Learner.MinFrequency, "Drop words seen fewer times than this")
	fs.Int("learner-max-candidates", defaults.Learner.MaxCandidates, "Maximum reduction candidates considered per word")
	fs.Int("learner-top-n", defaults.Learner.TopN, "Keep at most this many reductions per length (0 = unlimited)")
	fs.Bool("learner-refine", defaults.Learner.Refine, "Run the second, score-weighted learning pass")
	fs.Int("learner-workers", defaults.Learner.Workers, "Concurrent length buckets (0 = GOMAXPROCS)")
	fs.String("learner-letters", defaults.Learner.Letters, "Restrict reduction symbols to these letters (empty = all)")
	fs.Int("encoder-depth", defaults.Encoder.Depth, "Search depth when choosing a reduction")
	fs.Int("encoder-width", defaults.Encoder.Width, "Search width when choosing a reduction")
	fs.Int("encoder-min-length", defaults.Encoder.MinLength, "Words of this length or shorter are emitted symbol by symbol")
	fs.Int("encoder-cache-size", defaults.Encoder.CacheSize, "Encode cache entries (0 = unbounded)")
	fs.Int("encoder-workers", defaults.Encoder.Workers, "Concurrent corpus batches (0 = GOMAXPROCS)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent HTTP encode/decode requests")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("SPLINTER")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("splinter")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	lang, err := NormalizeLanguage(cfg.Language)
	if err != nil {
		return Config{}, err
	}
	cfg.Language = lang

	return cfg, nil
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// WordDictPath returns the configured word dictionary path, falling back to
// words_dict.json inside the artifact directory.
func (c Config) WordDictPath() string {
	if c.Paths.WordDictPath != "" {
		return c.Paths.WordDictPath
	}
	return filepath.Join(c.Paths.ArtifactDir, "words_dict.json")
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("language", c.Language)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("paths.corpus_path", c.Paths.CorpusPath)
	v.SetDefault("paths.artifact_dir", c.Paths.ArtifactDir)
	v.SetDefault("paths.word_dict_path", c.Paths.WordDictPath)
	v.SetDefault("paths.tokenizer_model", c.Paths.TokenizerModel)
	v.SetDefault("learner.min_frequency", c.Learner.MinFrequency)
	v.SetDefault("learner.max_candidates", c.Learner.MaxCandidates)
	v.SetDefault("learner.top_n", c.Learner.TopN)
	v.SetDefault("learner.refine", c.Learner.Refine)
	v.SetDefault("learner.workers", c.Learner.Workers)
	v.SetDefault("learner.letters", c.Learner.Letters)
	v.SetDefault("encoder.depth", c.Encoder.Depth)
	v.SetDefault("encoder.width", c.Encoder.Width)
	v.SetDefault("encoder.min_length", c.Encoder.MinLength)
	v.SetDefault("encoder.cache_size", c.Encoder.CacheSize)
	v.SetDefault("encoder.workers", c.Encoder.Workers)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("paths.corpus_path", "paths-corpus-path")
	v.RegisterAlias("paths.artifact_dir", "paths-artifact-dir")
	v.RegisterAlias("paths.word_dict_path", "paths-word-dict-path")
	v.RegisterAlias("paths.tokenizer_model", "paths-tokenizer-model")
	v.RegisterAlias("learner.min_frequency", "learner-min-frequency")
	v.RegisterAlias("learner.max_candidates", "learner-max-candidates")
	v.RegisterAlias("learner.top_n", "learner-top-n")
	v.RegisterAlias("learner.refine", "learner-refine")
	v.RegisterAlias("learner.workers", "learner-workers")
	v.RegisterAlias("learner.letters", "learner-letters")
	v.RegisterAlias("encoder.depth", "encoder-depth")
	v.RegisterAlias("encoder.width", "encoder-width")
	v.RegisterAlias("encoder.min_length", "encoder-min-length")
	v.RegisterAlias("encoder.cache_size", "encoder-cache-size")
	v.RegisterAlias("encoder.workers", "encoder-workers")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.max_text_bytes", "server-max-text-bytes")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
}
