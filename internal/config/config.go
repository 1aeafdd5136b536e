// Package config turns flags, environment variables and an optional pipeline
// file into one immutable Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExit       = "1"
	DefaultBufferSize = 10000

	EnvExit       = "FAILFAST_EXIT"
	EnvBufferSize = "FAILFAST_BUFFER_SIZE"
	EnvColor      = "FAILFAST_COLOR"
)

// ExitMode decides the exit code of failfast when a command fails.
type ExitMode struct {
	Mirror bool
	Fixed  int // used unless Mirror is set
}

// ParseExitMode accepts a signed integer or the literal "mirror".
func ParseExitMode(s string) (ExitMode, error) {
	if s == "mirror" {
		return ExitMode{Mirror: true}, nil
	}
	code, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return ExitMode{}, fmt.Errorf("invalid exit code: %s (use an integer or \"mirror\")", s)
	}
	return ExitMode{Fixed: int(code)}, nil
}

// Code returns the exit code to use after a command failed with actual.
func (m ExitMode) Code(actual int) int {
	if m.Mirror {
		return actual
	}
	return m.Fixed
}

func (m ExitMode) String() string {
	if m.Mirror {
		return "mirror"
	}
	return strconv.Itoa(m.Fixed)
}

// ParseBufferSize accepts a positive decimal integer.
func ParseBufferSize(s string) (int, error) {
	value, err := strconv.ParseUint(s, 10, 0)
	if err != nil || value > uint64(maxInt) {
		return 0, fmt.Errorf("invalid buffer size: %s", s)
	}
	if value == 0 {
		return 0, errors.New("buffer size must be at least 1")
	}
	return int(value), nil
}

const maxInt = int(^uint(0) >> 1)

// ColorMode controls ANSI colors in failfast's own messages.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(s); mode {
	case ColorAuto, ColorAlways, ColorNever:
		return mode, nil
	}
	return "", fmt.Errorf("invalid color mode: %s (use auto, always or never)", s)
}

// Config is the validated configuration of one failfast run.
type Config struct {
	Exit       ExitMode
	BufferSize int
	Commands   []string
	Color      ColorMode
	SaveOutput string
	Verbose    bool
}

// File is the YAML pipeline file given with --file.
type File struct {
	Exit       *string  `yaml:"exit"`
	BufferSize *int     `yaml:"buffer_size"`
	Color      *string  `yaml:"color"`
	Commands   []string `yaml:"commands"`
}

// LoadFile reads and decodes a pipeline file. Unknown keys are an error.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var file File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, err)
	}
	return &file, nil
}

// Options holds the raw values given on the command line. Exit, BufferSize
// and Color only apply if their *Set field is true; an empty value that was
// set explicitly is validated like any other.
type Options struct {
	Exit          string
	ExitSet       bool
	BufferSize    string
	BufferSizeSet bool
	Color         string
	ColorSet      bool
	File          string
	SaveOutput    string
	Verbose       bool
	Commands      []string
}

// Load layers defaults, environment, pipeline file and command line options,
// in increasing order of precedence, and validates the result. Commands from
// the pipeline file run before the ones given as arguments.
func Load(opts Options, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	exit := firstNonEmpty(getenv(EnvExit), DefaultExit)
	bufferSize := getenv(EnvBufferSize)
	color := firstNonEmpty(getenv(EnvColor), string(ColorAuto))
	var commands []string

	if opts.File != "" {
		file, err := LoadFile(opts.File)
		if err != nil {
			return Config{}, err
		}
		if file.Exit != nil {
			exit = *file.Exit
		}
		if file.BufferSize != nil {
			bufferSize = strconv.Itoa(*file.BufferSize)
		}
		if file.Color != nil {
			color = *file.Color
		}
		commands = append(commands, file.Commands...)
	}

	if opts.ExitSet {
		exit = opts.Exit
	}
	bufferSizeSet := bufferSize != ""
	if opts.BufferSizeSet {
		bufferSize = opts.BufferSize
		bufferSizeSet = true
	}
	if opts.ColorSet {
		color = opts.Color
	}
	commands = append(commands, opts.Commands...)

	cfg := Config{
		BufferSize: DefaultBufferSize,
		Commands:   commands,
		SaveOutput: opts.SaveOutput,
		Verbose:    opts.Verbose,
	}

	var err error
	if cfg.Exit, err = ParseExitMode(exit); err != nil {
		return Config{}, err
	}
	if bufferSizeSet {
		if cfg.BufferSize, err = ParseBufferSize(bufferSize); err != nil {
			return Config{}, err
		}
	}
	if cfg.Color, err = ParseColorMode(color); err != nil {
		return Config{}, err
	}
	if len(cfg.Commands) == 0 {
		return Config{}, errors.New("no commands given")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
