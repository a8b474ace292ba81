package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"histport.dev/histport/internal/vcs"
)

// Configuration keys
const (
	KeySourceArchive        = "source.archive"
	KeySourceRoots          = "source.roots"
	KeySourceExclude        = "source.exclude"
	KeyTargetBackend        = "target.backend"
	KeyTargetDir            = "target.dir"
	KeyTargetReset          = "target.reset"
	KeyGroupingAnyComment   = "grouping.anyComment"
	KeyGroupingSameComment  = "grouping.sameComment"
	KeyEmailDomain          = "email.domain"
	KeyEmailMap             = "email.map"
	KeyEmailUsers           = "email.users"
	KeyCommitDefaultComment = "commit.defaultComment"
	KeyVerifyReference      = "verify.reference"
	KeyFailurePolicy        = "failure.policy"
	KeyFailureMaxElapsed    = "failure.maxElapsed"
	KeyLogFile              = "log.file"
	KeyLogDebug             = "log.debug"
)

// EnvPrefix prefixes every environment override, e.g. HISTPORT_TARGET_DIR
const EnvPrefix = "HISTPORT"

// Failure policies
const (
	PolicyAbort  = "abort"
	PolicyIgnore = "ignore"
	PolicyRetry  = "retry"
	PolicyPrompt = "prompt"
)

// Policies lists the accepted failure.policy values
var Policies = []string{PolicyAbort, PolicyIgnore, PolicyRetry, PolicyPrompt}

// Settings is the resolved configuration of one invocation
type Settings struct {
	Source struct {
		Archive string
		Roots   []string
		Exclude []string
	}
	Target struct {
		Backend string
		Dir     string
		Reset   bool
	}
	Grouping struct {
		AnyComment  time.Duration
		SameComment time.Duration
	}
	Email struct {
		Domain  string
		MapFile string
		Users   map[string]string
	}
	DefaultComment string
	Reference      string
	Failure        struct {
		Policy     string
		MaxElapsed time.Duration
	}
	Log struct {
		File  string
		Debug bool
	}
	// File is the configuration file that was read, if any
	File string
}

// Loader reads Settings from a config file, HISTPORT_* environment
// variables and bound command-line flags, in increasing precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with every default registered
func NewLoader() *Loader {
	v := viper.New()
	v.SetDefault(KeyTargetBackend, "git")
	v.SetDefault(KeyTargetReset, false)
	v.SetDefault(KeyGroupingAnyComment, "30s")
	v.SetDefault(KeyGroupingSameComment, "10m")
	v.SetDefault(KeyEmailDomain, "localhost")
	v.SetDefault(KeyCommitDefaultComment, "(no comment)")
	v.SetDefault(KeyFailurePolicy, PolicyAbort)
	v.SetDefault(KeyFailureMaxElapsed, "1m")
	v.SetDefault(KeyLogDebug, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes a command-line flag override key when it is set
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind to %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Set overrides a key for this loader only
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load reads path, or histport.{yaml,toml,json} from the working directory
// when path is empty, and resolves the settings. A missing default file
// is not an error.
func (l *Loader) Load(path string) (*Settings, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("histport")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	s := &Settings{File: l.v.ConfigFileUsed()}
	s.Source.Archive = l.v.GetString(KeySourceArchive)
	s.Source.Roots = l.v.GetStringSlice(KeySourceRoots)
	s.Source.Exclude = l.v.GetStringSlice(KeySourceExclude)
	s.Target.Backend = strings.ToLower(l.v.GetString(KeyTargetBackend))
	s.Target.Dir = l.v.GetString(KeyTargetDir)
	s.Target.Reset = l.v.GetBool(KeyTargetReset)
	s.Grouping.AnyComment = l.v.GetDuration(KeyGroupingAnyComment)
	s.Grouping.SameComment = l.v.GetDuration(KeyGroupingSameComment)
	s.Email.Domain = l.v.GetString(KeyEmailDomain)
	s.Email.MapFile = l.v.GetString(KeyEmailMap)
	s.Email.Users = l.v.GetStringMapString(KeyEmailUsers)
	s.DefaultComment = l.v.GetString(KeyCommitDefaultComment)
	s.Reference = l.v.GetString(KeyVerifyReference)
	s.Failure.Policy = strings.ToLower(l.v.GetString(KeyFailurePolicy))
	s.Failure.MaxElapsed = l.v.GetDuration(KeyFailureMaxElapsed)
	s.Log.File = l.v.GetString(KeyLogFile)
	s.Log.Debug = l.v.GetBool(KeyLogDebug)
	return s, nil
}

// Validate checks the settings an export needs
func (s *Settings) Validate() error {
	var problems []string
	if s.Source.Archive == "" {
		problems = append(problems, fmt.Sprintf("%s is required", KeySourceArchive))
	}
	if len(s.Source.Roots) == 0 {
		problems = append(problems, fmt.Sprintf("%s needs at least one project path", KeySourceRoots))
	}
	if !slices.Contains(vcs.Kinds(), s.Target.Backend) {
		problems = append(problems, fmt.Sprintf("%s: unknown backend %q (valid: %s)", KeyTargetBackend, s.Target.Backend, strings.Join(vcs.Kinds(), ", ")))
	}
	if s.Target.Dir == "" {
		problems = append(problems, fmt.Sprintf("%s is required", KeyTargetDir))
	}
	if s.Grouping.AnyComment < 0 {
		problems = append(problems, fmt.Sprintf("%s must not be negative", KeyGroupingAnyComment))
	}
	if s.Grouping.SameComment < 0 {
		problems = append(problems, fmt.Sprintf("%s must not be negative", KeyGroupingSameComment))
	}
	if !slices.Contains(Policies, s.Failure.Policy) {
		problems = append(problems, fmt.Sprintf("%s: unknown policy %q (valid: %s)", KeyFailurePolicy, s.Failure.Policy, strings.Join(Policies, ", ")))
	}
	if s.Failure.MaxElapsed < 0 {
		problems = append(problems, fmt.Sprintf("%s must not be negative", KeyFailureMaxElapsed))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Emails returns the user to address table keyed by lower-cased user
// name: the map file first, then the inline users, which win on conflicts.
func (s *Settings) Emails() (map[string]string, error) {
	table := make(map[string]string)
	if s.Email.MapFile != "" {
		fromFile, err := LoadEmailMap(s.Email.MapFile)
		if err != nil {
			return nil, err
		}
		for user, addr := range fromFile {
			table[strings.ToLower(user)] = addr
		}
	}
	for user, addr := range s.Email.Users {
		table[strings.ToLower(user)] = addr
	}
	return table, nil
}

// LoadEmailMap reads a YAML document mapping legacy user names to addresses
func LoadEmailMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read email map: %w", err)
	}
	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse email map %s: %w", path, err)
	}
	return table, nil
}
