package config

import (
	"sync"

	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/recoilme/pudge"
)

var ConfigDB *pudge.Db

var cfglock = sync.RWMutex{}

type Conf struct {
	Name string
	Data interface{}
}

var configEntries []Conf

func OpenConfig(file string) (db *pudge.Db, err error) {
	cfg := &pudge.Config{
		SyncInterval: 1} // every second fsync
	mydb, err := pudge.Open(file, cfg)
	configEntries = []Conf{}
	return mydb, err
}

//CacheConfig replaces the in-memory entries and writes them through to the
//settings db so the last known-good config survives a broken reload.
func CacheConfig(cfg Cfg) {
	cfglock.Lock()
	defer cfglock.Unlock()
	configEntries = []Conf{{Name: "general", Data: cfg.General}}
	for name := range cfg.Table {
		configEntries = append(configEntries, Conf{Name: "table_" + name, Data: cfg.Table[name]})
	}
	if ConfigDB != nil {
		for idx := range configEntries {
			if err := ConfigDB.Set(configEntries[idx].Name, configEntries[idx].Data); err != nil {
				logger.Log.Errorln("Config persist failed: ", configEntries[idx].Name, err)
			}
		}
	}
}

func ConfigGetAll() []*Conf {
	cfglock.RLock()
	defer cfglock.RUnlock()
	var b []*Conf
	for idx := range configEntries {
		b = append(b, &configEntries[idx])
	}
	return b
}

func ConfigGet(key string) *Conf {
	cfglock.RLock()
	defer cfglock.RUnlock()
	for idx := range configEntries {
		if configEntries[idx].Name == key {
			return &configEntries[idx]
		}
	}
	logger.Log.Errorln("Config not found: ", key)
	return nil
}

func ConfigGetGeneral() GeneralConfig {
	cfglock.RLock()
	for idx := range configEntries {
		if configEntries[idx].Name == "general" {
			general := configEntries[idx].Data.(GeneralConfig)
			cfglock.RUnlock()
			return general
		}
	}
	cfglock.RUnlock()
	var general GeneralConfig
	applyGeneralDefaults(&general)
	return general
}

func ConfigGetTable(name string) TableConfig {
	cfglock.RLock()
	defer cfglock.RUnlock()
	for idx := range configEntries {
		if configEntries[idx].Name == "table_"+name {
			return configEntries[idx].Data.(TableConfig)
		}
	}
	return TableConfig{Name: name}
}

//ConfigSetGeneral is used by the api to flip runtime toggles like the
//ajaxtable cache without a config file roundtrip.
func ConfigSetGeneral(general GeneralConfig) {
	cfglock.Lock()
	defer cfglock.Unlock()
	for idx := range configEntries {
		if configEntries[idx].Name == "general" {
			configEntries[idx].Data = general
			if ConfigDB != nil {
				if err := ConfigDB.Set("general", general); err != nil {
					logger.Log.Errorln("Config persist failed: general ", err)
				}
			}
			return
		}
	}
	configEntries = append(configEntries, Conf{Name: "general", Data: general})
}
