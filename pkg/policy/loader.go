package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Query is the Rego document evaluated for every prompt
const Query = "data.prompt"

// ErrPolicyDir is returned when the policy directory is missing or not a directory
var ErrPolicyDir = goerr.New("invalid policy directory")

// loadModules reads all Rego files of policyDir
func loadModules(policyDir string) ([]func(*rego.Rego), error) {
	info, err := os.Stat(policyDir)
	if err != nil {
		return nil, goerr.Wrap(ErrPolicyDir, err.Error(), goerr.V("dir", policyDir))
	}
	if !info.IsDir() {
		return nil, goerr.Wrap(ErrPolicyDir, "not a directory", goerr.V("dir", policyDir))
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}

	modules := make([]func(*rego.Rego), 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		modules = append(modules, rego.Module(file, string(data)))
	}

	return modules, nil
}

// prepareQuery prepares a Rego query with all loaded modules
func prepareQuery(ctx context.Context, modules []func(*rego.Rego), query string) (*rego.PreparedEvalQuery, error) {
	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query(query))
	options = append(options, modules...)

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare query", goerr.V("query", query))
	}

	return &prepared, nil
}
