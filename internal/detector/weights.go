package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Weights file extensions the backends understand.
var weightsExts = []string{".onnx", ".pt"}

// ResolveWeights resolves a weights spec to an existing file path.
//
// Tries the following in order:
//   - Special value "AUTO": newest weights file next to the executable
//   - If absolute path: use it directly
//   - As given, relative to the current working directory
//   - Relative to the executable directory
func ResolveWeights(spec string) (string, error) {
	if strings.ToUpper(spec) == "AUTO" {
		return newestWeights(executableDir())
	}

	var candidates []string
	if filepath.IsAbs(spec) {
		candidates = append(candidates, spec)
	} else {
		candidates = append(candidates, spec)
		if dir := executableDir(); dir != "" {
			candidates = append(candidates, filepath.Join(dir, spec))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, nil
			}
			return c, nil
		}
	}

	return "", fmt.Errorf("could not find weights file for spec %q, tried: %s",
		spec, strings.Join(candidates, ", "))
}

// newestWeights returns the most recently modified weights file in dir.
func newestWeights(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("AUTO could not determine the executable directory")
	}

	var found []string
	for _, ext := range weightsExts {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return "", err
		}
		found = append(found, matches...)
	}

	if len(found) == 0 {
		return "", fmt.Errorf("AUTO could not find any weights files in %s", dir)
	}

	sort.Slice(found, func(i, j int) bool {
		fi, errI := os.Stat(found[i])
		fj, errJ := os.Stat(found[j])
		if errI != nil || errJ != nil {
			return found[i] < found[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})

	return found[0], nil
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}
