// Package launchfile loads declarative launch manifests for the reeve CLI.
//
// A manifest names the command to run, its environment and flags, and a
// redirection policy per standard stream. Manifests are validated against
// the embedded JSON schema before decoding, then checked semantically, and
// finally lowered to a subprocess.Spec.
package launchfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/reeve/internal/subprocess"
)

const (
	ModePipe    = "pipe"
	ModeInherit = "inherit"
	ModePath    = "path"
	ModeDiscard = "discard"
)

// Stream is the redirection policy for a single child stream. An empty
// mode defaults to inheriting the parent's corresponding stream.
type Stream struct {
	Mode string `yaml:"mode"`
	Path string `yaml:"path"`
}

// File is a decoded launch manifest.
type File struct {
	Command    []string          `yaml:"command"`
	Workdir    string            `yaml:"workdir"`
	Env        map[string]string `yaml:"env"`
	InheritEnv bool              `yaml:"inheritEnv"`
	Flags      map[string]string `yaml:"flags"`
	Stdin      Stream            `yaml:"stdin"`
	Stdout     Stream            `yaml:"stdout"`
	Stderr     Stream            `yaml:"stderr"`

	// dir is the manifest's directory, used to anchor relative paths.
	dir string
}

// Load reads, schema-validates and decodes a manifest from path.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return Parse(data, filepath.Dir(absPath))
}

// Parse decodes manifest bytes. dir anchors relative workdir and stream
// paths; an empty dir leaves them relative to the current directory.
func Parse(data []byte, dir string) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	doc.dir = dir
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate performs the semantic checks the schema cannot express.
func (f *File) Validate() error {
	if len(f.Command) == 0 {
		return fmt.Errorf("manifest: command must not be empty")
	}
	if f.Command[0] == "" {
		return fmt.Errorf("manifest: command[0] must name a program")
	}
	for name, stream := range map[string]Stream{
		"stdin":  f.Stdin,
		"stdout": f.Stdout,
		"stderr": f.Stderr,
	} {
		switch stream.Mode {
		case "", ModePipe, ModeInherit, ModeDiscard:
			if stream.Path != "" {
				return fmt.Errorf("manifest: %s: path is only valid with mode %q", name, ModePath)
			}
		case ModePath:
			if stream.Path == "" {
				return fmt.Errorf("manifest: %s: mode %q requires a path", name, ModePath)
			}
		default:
			return fmt.Errorf("manifest: %s: unknown mode %q", name, stream.Mode)
		}
	}
	return nil
}

// Spec lowers the manifest into a launch spec. A manifest without an env
// block inherits the parent environment; an env block replaces it unless
// inheritEnv asks for a merge. Environment values and the workdir undergo
// ${VAR} expansion against the parent environment.
func (f *File) Spec() (subprocess.Spec, error) {
	spec := subprocess.Spec{
		Path: f.Command[0],
		Args: append([]string(nil), f.Command...),
		Dir:  f.anchor(os.ExpandEnv(f.Workdir)),
	}

	if len(f.Flags) > 0 {
		spec.Flags = subprocess.Flags(f.Flags)
	}

	if f.Env != nil {
		var env []string
		if f.InheritEnv {
			env = subprocess.Environ()
		} else {
			env = []string{}
		}
		for _, name := range sortedKeys(f.Env) {
			env = append(env, name+"="+os.ExpandEnv(f.Env[name]))
		}
		spec.Env = env
	}

	var err error
	if spec.Stdin, err = f.Stdin.spec(DirStdin, f); err != nil {
		return subprocess.Spec{}, err
	}
	if spec.Stdout, err = f.Stdout.spec(DirStdout, f); err != nil {
		return subprocess.Spec{}, err
	}
	if spec.Stderr, err = f.Stderr.spec(DirStderr, f); err != nil {
		return subprocess.Spec{}, err
	}
	return spec, nil
}

// Which identifies one of the three standard streams.
type Which int

const (
	DirStdin Which = iota
	DirStdout
	DirStderr
)

func (w Which) String() string {
	switch w {
	case DirStdin:
		return "stdin"
	case DirStdout:
		return "stdout"
	default:
		return "stderr"
	}
}

func (s Stream) spec(which Which, f *File) (subprocess.IO, error) {
	switch s.Mode {
	case ModePipe:
		return subprocess.Pipe(), nil
	case "", ModeInherit:
		return subprocess.FD(parentStream(which), subprocess.FDDuplicate), nil
	case ModeDiscard:
		return subprocess.Path(os.DevNull), nil
	case ModePath:
		return subprocess.Path(f.anchor(os.ExpandEnv(s.Path))), nil
	default:
		return subprocess.IO{}, fmt.Errorf("manifest: %s: unknown mode %q", which, s.Mode)
	}
}

func parentStream(which Which) *os.File {
	switch which {
	case DirStdin:
		return os.Stdin
	case DirStdout:
		return os.Stdout
	default:
		return os.Stderr
	}
}

// anchor resolves a path relative to the manifest's directory.
func (f *File) anchor(path string) string {
	if path == "" || filepath.IsAbs(path) || f.dir == "" {
		return path
	}
	return filepath.Clean(filepath.Join(f.dir, path))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
