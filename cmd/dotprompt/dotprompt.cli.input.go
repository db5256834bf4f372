package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// readInput reads from a file path, or from stdin when path is "-"
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes to a file path, or to stdout when path is "-"
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, FilePermissions)
}

// loadData builds the input map from --data or --data-file. An empty
// map is returned when neither flag was given.
func loadData(dataJSON, dataFilePath string) (map[string]any, error) {
	raw := []byte(dataJSON)
	if dataFilePath != "" {
		fileBytes, err := os.ReadFile(dataFilePath)
		if err != nil {
			return nil, err
		}
		raw = fileBytes
	}

	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidJSON, err)
	}
	return data, nil
}
