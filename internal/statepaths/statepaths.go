// Package statepaths resolves where the relay keeps durable state.
// Everything hangs off file_state_dir so a single viper key relocates
// the whole tree.
package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const defaultStateDir = "~/.zaprelay"

func FileStateDir() string {
	dir := strings.TrimSpace(viper.GetString("file_state_dir"))
	if dir == "" {
		dir = defaultStateDir
	}
	return ExpandHomePath(dir)
}

func ConversationsDir() string {
	name := strings.TrimSpace(viper.GetString("conversations.dir_name"))
	if name == "" {
		name = "conversations"
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(FileStateDir(), name)
}

func LocksDir() string {
	return filepath.Join(FileStateDir(), ".locks")
}

func PersonaPath() string {
	path := strings.TrimSpace(viper.GetString("persona.path"))
	if path == "" {
		path = "persona.yaml"
	}
	return ExpandHomePath(path)
}

func ExpandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Clean(path)
}
