package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/flowlog/internal/compiler"
)

// Error code constants, unified across all CLI commands. Program
// validation errors use the compiler's E2xx codes.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeScanError  = "E002" // Directory scan error
	ErrCodeNoFiles    = "E003" // No CUE files found
	ErrCodeLoadFailed = "E004" // CUE load or build failed
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeDecode     = "E006" // CUE value is not a valid program
	ErrCodeStore      = "E007" // Database error
)

// LoadError represents an error that occurred while loading or compiling
// a program.
type LoadError struct {
	Code     string
	Message  string
	Pos      token.Pos // CUE position if available
	Problems []compiler.ValidationError
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// describe is the message with its source position, without the code.
func (e *LoadError) describe() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadProgram loads every .cue file of the package in dir and decodes
// the result into a program. The program is not validated.
func LoadProgram(dir string) (*compiler.Program, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	p, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertDecodeError(err)
	}
	return p, nil
}

// FindCUEFiles returns the .cue files directly inside dir, the files that
// make up the package LoadProgram builds.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertDecodeError converts a compiler load error to a LoadError with
// position info. CUE evaluation errors keep ErrCodeLoadFailed; structural
// problems in the program document get ErrCodeDecode.
func convertDecodeError(err error) *LoadError {
	var decErr *compiler.DecodeError
	if errors.As(err, &decErr) {
		code := ErrCodeDecode
		if decErr.Field == "cue" {
			code = ErrCodeLoadFailed
		}
		return &LoadError{
			Code:    code,
			Message: decErr.Field + ": " + decErr.Message,
			Pos:     decErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// convertCompileError converts a compiler.CompileError to a LoadError
// carrying its code and every validation problem.
func convertCompileError(err error) *LoadError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:     ce.Code,
			Message:  strings.TrimPrefix(ce.Error(), ce.Code+": "),
			Problems: ce.Problems,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
