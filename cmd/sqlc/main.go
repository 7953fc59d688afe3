// Генерация sqlc-кода для каждого query.sql из .sqlc.base.yaml:
// пакет называется по каталогу запроса, код кладётся рядом с ним.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	baseConfigName = ".sqlc.base"
	engineKey      = "sql.0"
)

type generator struct {
	version string
	engine  *viper.Viper
	queries []string
}

func loadBase() (*generator, error) {
	v := viper.New()
	v.SetConfigName(baseConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read base config")
	}

	patterns := v.GetStringSlice(engineKey + ".source")
	if len(patterns) == 0 {
		return nil, errors.Errorf("no %s.source in base config", engineKey)
	}
	var queries []string
	for _, pattern := range patterns {
		found, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		queries = append(queries, found...)
	}
	if len(queries) == 0 {
		return nil, errors.Errorf("no query files match %v", patterns)
	}
	sort.Strings(queries)

	engine := v.Sub(engineKey)
	if engine == nil {
		return nil, errors.Errorf("no %s section in base config", engineKey)
	}
	engine.Set("schema", v.GetString(engineKey+".schema"))

	return &generator{version: v.GetString("version"), engine: engine, queries: queries}, nil
}

// packageName — каталог файла запросов: .../alerts/sql/query.sql -> "sql".
func packageName(queryFile string) string {
	dir := filepath.Dir(queryFile)
	return filepath.Base(dir)
}

// writeConfig собирает sqlc.yaml под один файл запросов во временный файл.
func (g *generator) writeConfig(queryFile string) (string, error) {
	dir := filepath.Dir(queryFile)
	g.engine.Set("queries", queryFile)
	g.engine.Set("gen.go.package", packageName(queryFile))
	g.engine.Set("gen.go.out", dir)

	settings := g.engine.AllSettings()
	delete(settings, "source")

	bs, err := yaml.Marshal(map[string]interface{}{
		"version": g.version,
		"sql":     []interface{}{settings},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal sqlc config")
	}

	f, err := os.CreateTemp(".", "sqlc-*.yaml")
	if err != nil {
		return "", errors.Wrap(err, "create sqlc config")
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(bs); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write sqlc config")
	}
	return f.Name(), nil
}

func runSqlc(config string) error {
	out, err := exec.Command("sqlc", "generate", "--file", config).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "sqlc generate: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

func (g *generator) run() error {
	for _, q := range g.queries {
		config, err := g.writeConfig(q)
		if err != nil {
			return errors.Wrapf(err, "config for %s", q)
		}
		err = runSqlc(config)
		_ = os.Remove(config)
		if err != nil {
			return errors.Wrapf(err, "generate %s", q)
		}
		fmt.Printf("%s done\n", q)
	}
	return nil
}

func main() {
	g, err := loadBase()
	if err == nil {
		err = g.run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlc: %v\n", err)
		os.Exit(1)
	}
}
