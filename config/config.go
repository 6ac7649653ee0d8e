// koanf_api
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
)

//Main Config
type MainConfig struct {
	General GeneralConfig `koanf:"General"`
	Tables  []TableConfig `koanf:"tables"`
}

type GeneralConfig struct {
	LogLevel              string `koanf:"LogLevel"`
	DBLogLevel            string `koanf:"DBLogLevel"`
	LogFileSize           int    `koanf:"LogFileSize"`
	LogFileCount          int    `koanf:"LogFileCount"`
	LogCompress           bool   `koanf:"LogCompress"`
	WebPort               string `koanf:"WebPort"`
	WebApiKey             string `koanf:"WebApiKey"`
	AjaxTableCache        bool   `koanf:"AjaxTableCache"`
	AjaxTablePageSize     int    `koanf:"AjaxTablePageSize"`
	AjaxTableMainColumns  int    `koanf:"AjaxTableMainColumns"`
	AjaxTablePageSizes    []int  `koanf:"AjaxTablePageSizes"`
	ActivityRetentionDays int    `koanf:"ActivityRetentionDays"`
	BackupSchedule        string `koanf:"BackupSchedule"`
	PruneSchedule         string `koanf:"PruneSchedule"`
	MaxDatabaseBackups    int    `koanf:"MaxDatabaseBackups"`
	EnableFileWatcher     bool   `koanf:"EnableFileWatcher"`
}

//Per table overrides - anything not set falls back to the general defaults
type TableConfig struct {
	Name                 string   `koanf:"name"`
	DisplayField         string   `koanf:"displayfield"`
	SearchableFields     []string `koanf:"searchablefields"`
	HiddenFields         []string `koanf:"hiddenfields"`
	DefaultSortField     string   `koanf:"defaultsortfield"`
	DefaultSortDirection string   `koanf:"defaultsortdirection"`
	PageSize             int      `koanf:"pagesize"`
	MainColumnCount      int      `koanf:"maincolumncount"`
}

type Cfg struct {
	General GeneralConfig
	Table   map[string]TableConfig
}

const Configfile string = "config.toml"

func LoadCfg(configfile string) (Cfg, *file.File, error) {
	var k = koanf.New(".")

	f := file.Provider(configfile)
	if strings.Contains(configfile, "toml") {
		err := k.Load(f, toml.Parser())
		if err != nil {
			fmt.Println("Error loading config. ", err)
			return Cfg{}, nil, err
		}
	}

	if k.Sprint() == "" {
		fmt.Println("Error loading config. Config Empty")
		return Cfg{}, nil, errors.New("error loading config")
	}
	cfg := LoadCfgData(f, configfile)
	return cfg, f, nil
}

func Watch(f *file.File, parser string) {
	f.Watch(func(event interface{}, err error) {
		if err != nil {
			log.Printf("watch error: %v", err)
			return
		}

		log.Println("cfg reloaded")
		time.Sleep(time.Duration(2) * time.Second)
		cfg := LoadCfgData(f, parser)
		CacheConfig(cfg)
	})
}

func LoadCfgData(f *file.File, parser string) Cfg {
	var k = koanf.New(".")

	if strings.Contains(parser, "toml") {
		err := k.Load(f, toml.Parser())
		if err != nil {
			fmt.Println("Error loading config. ", err)
			return Cfg{}
		}
	}

	if k.Sprint() == "" {
		fmt.Println("Error loading config. Config Empty")
		return Cfg{}
	}
	cfg := Cfg{}
	var general GeneralConfig
	if err := k.Unmarshal("general", &general); err == nil {
		cfg.General = general
	}
	applyGeneralDefaults(&cfg.General)

	var tables []TableConfig
	if err := k.Unmarshal("tables", &tables); err == nil {
		structout := make(map[string]TableConfig, len(tables))
		for idx := range tables {
			structout[tables[idx].Name] = tables[idx]
		}
		cfg.Table = structout
	}
	if cfg.Table == nil {
		cfg.Table = map[string]TableConfig{}
	}
	return cfg
}

func applyGeneralDefaults(general *GeneralConfig) {
	if general.WebPort == "" {
		general.WebPort = "9090"
	}
	if general.AjaxTablePageSize <= 0 {
		general.AjaxTablePageSize = 10
	}
	if general.AjaxTableMainColumns <= 0 {
		general.AjaxTableMainColumns = 4
	}
	if len(general.AjaxTablePageSizes) == 0 {
		general.AjaxTablePageSizes = []int{10, 15, 25, 50, 100}
	}
	if general.ActivityRetentionDays <= 0 {
		general.ActivityRetentionDays = 90
	}
	if general.BackupSchedule == "" {
		general.BackupSchedule = "0 3 * * *"
	}
	if general.PruneSchedule == "" {
		general.PruneSchedule = "30 3 * * *"
	}
	if general.MaxDatabaseBackups == 0 {
		general.MaxDatabaseBackups = 10
	}
}
