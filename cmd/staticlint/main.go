// Command staticlint runs the project's static analysis: analyzers from the Go
// toolchain, third-party analyzers, the project's noexit analyzer and the
// staticcheck/stylecheck analyzers named in config.json.
//
// config.json is read from the directory of the executable:
//
//	{"Staticcheck": ["SA*", "ST1005"]}
//
// A name ending with "*" enables every analyzer with that prefix.
//
// Usage:
//
//	go build -o staticlint ./cmd/staticlint
//	cp cmd/staticlint/config.json .
//	./staticlint ./...
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/forcetypeassert"
	"github.com/gostaticanalysis/nilerr"
	"github.com/gostaticanalysis/wraperrfmt"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/tinyapp/cmd/staticlint/noexit"
)

// Config is the name of the JSON configuration file.
const Config = `config.json`

// ConfigData describes the configuration file.
type ConfigData struct {
	Staticcheck []string
}

func (c ConfigData) enabled(name string) bool {
	for _, pattern := range c.Staticcheck {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if pattern == name {
			return true
		}
	}

	return false
}

func loadConfig() (ConfigData, error) {
	var cfg ConfigData

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)

	return cfg, err
}

func selectAnalyzers(cfg ConfigData, groups ...[]*lint.Analyzer) []*analysis.Analyzer {
	var selected []*analysis.Analyzer
	for _, group := range groups {
		for _, v := range group {
			if cfg.enabled(v.Analyzer.Name) {
				selected = append(selected, v.Analyzer)
			}
		}
	}

	return selected
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,
		forcetypeassert.Analyzer,
		wraperrfmt.Analyzer,

		noexit.Analyzer,
	}

	myChecks = append(myChecks, selectAnalyzers(cfg, staticcheck.Analyzers, stylecheck.Analyzers)...)

	multichecker.Main(myChecks...)
}
