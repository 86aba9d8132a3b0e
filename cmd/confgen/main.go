package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// confgen merges configs/values_base.yaml with the overlay of the chosen
// environment and writes the result to configs/values_local.yaml, which is
// what the gateway reads by default.

const (
	configDir  = "configs"
	baseName   = "values_base"
	outputFile = "values_local.yaml"
)

func loadLayer(name string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return v, nil
}

func generate(env string) error {
	base, err := loadLayer(baseName)
	if err != nil {
		return err
	}

	if env != "" {
		overlay, err := loadLayer("values_" + env)
		if err != nil {
			return err
		}
		if err := base.MergeConfigMap(overlay.AllSettings()); err != nil {
			return errors.Wrap(err, "merge overlay")
		}
	}

	bs, err := yaml.Marshal(base.AllSettings())
	if err != nil {
		return errors.Wrap(err, "marshal merged config")
	}

	out := filepath.Join(configDir, outputFile)
	if err := os.WriteFile(out, bs, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}

	fmt.Printf("wrote %s (env: %q)\n", out, env)
	return nil
}

func main() {
	env := ""
	if len(os.Args) > 1 {
		env = os.Args[1]
	}

	if err := generate(env); err != nil {
		panic(err)
	}
}
