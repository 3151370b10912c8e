package schemas

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format names a wire representation for step sequences.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user supplied name (or file extension) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported step format %q (expected json or yaml)", name)
}

// MarshalSteps encodes a step sequence as a JSON array.
func MarshalSteps(steps []WorkflowStep) ([]byte, error) {
	if steps == nil {
		steps = []WorkflowStep{}
	}
	return json.Marshal(steps)
}

// UnmarshalSteps decodes a JSON array of steps. It does not validate them.
func UnmarshalSteps(data []byte) ([]WorkflowStep, error) {
	var steps []WorkflowStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}
	return steps, nil
}

// EncodeSteps writes steps to w in the requested format.
func EncodeSteps(w io.Writer, steps []WorkflowStep, format Format) error {
	if steps == nil {
		steps = []WorkflowStep{}
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(steps); err != nil {
			return fmt.Errorf("failed to encode steps as yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(steps, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode steps as json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}
}

// DecodeSteps reads a step sequence in the given format and validates it.
func DecodeSteps(r io.Reader, format Format) ([]WorkflowStep, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}

	var steps []WorkflowStep
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&steps); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml steps: %w", err)
		}
	default:
		if steps, err = UnmarshalSteps(data); err != nil {
			return nil, err
		}
	}

	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// LoadSteps reads a workflow file, choosing the format from its extension.
func LoadSteps(path string) ([]WorkflowStep, error) {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workflow file: %w", err)
	}
	defer f.Close()

	steps, err := DecodeSteps(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}
