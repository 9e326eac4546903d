package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/templater"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration and template files"`
	Output string `short:"o" name:"output" help:"Directory receiving izupress.yaml and templates/"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	cfgPath := root.Config
	if i.Output != "" {
		cfgPath = filepath.Join(i.Output, config.DefaultConfigFile)
	}
	return RunInit(cfgPath, i.Force)
}

// RunInit writes the example configuration to configPath and the default
// templates next to it, in the directory the example configuration points at.
func RunInit(configPath string, force bool) error {
	fmt.Println("Initializing izupress project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	example := config.Example()
	tplDir := filepath.Join(filepath.Dir(configPath), example.Templates.Dir)
	written, err := templater.WriteDefaults(tplDir, force)
	if err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	for _, path := range written {
		fmt.Printf("Wrote template %s\n", path)
	}
	fmt.Println("initialized successfully")
	return nil
}
