// Package factorio is the boundary to the game installation: locating its
// directories, staging scenario scripts, and running the game process.
package factorio

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
)

// Paths holds the locations the extractor needs inside a game
// installation.
type Paths struct {
	Root            string
	Executable      string
	ScenariosDir    string
	ScriptOutputDir string
}

// DiscoverPaths locates the game's executable, scenario directory and
// script output directory under rootDir.
//
// The game's config-path.cfg decides whether writable data lives inside
// the installation or in the per-user system directory. The game itself
// writes a config.ini on first run that could refine this, but the flag in
// config-path.cfg has been sufficient in practice.
func DiscoverPaths(rootDir string) (Paths, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return Paths{}, err
	}

	executable := filepath.Join(root, "bin", "x64", executableName())

	raw, err := os.ReadFile(filepath.Join(root, "config-path.cfg"))
	if err != nil {
		return Paths{}, err
	}

	useSystemDir, err := parseDataDirectoriesFlag(string(raw))
	if err != nil {
		return Paths{}, err
	}

	dataRoot := root
	if useSystemDir {
		dataRoot, err = systemDataDir()
		if err != nil {
			return Paths{}, err
		}
	}

	return Paths{
		Root:            root,
		Executable:      executable,
		ScenariosDir:    filepath.Join(dataRoot, "scenarios"),
		ScriptOutputDir: filepath.Join(dataRoot, "script-output"),
	}, nil
}

func parseDataDirectoriesFlag(config string) (bool, error) {
	for _, line := range strings.Split(config, "\n") {
		switch strings.TrimRight(line, "\r") {
		case "use-system-read-write-data-directories=true":
			return true, nil
		case "use-system-read-write-data-directories=false":
			return false, nil
		}
	}
	return false, errors.New("cannot get use-system-read-write-data-directories from config-path.cfg")
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return "factorio.exe"
	}
	return "factorio"
}

// systemDataDir returns the per-user writable data directory the game uses
// on each platform.
func systemDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "Factorio"), nil
	case "darwin":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "factorio"), nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".factorio"), nil
	}
}
