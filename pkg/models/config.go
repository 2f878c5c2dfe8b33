package models

// ConnectionConfig describes how the engine reaches the target device or
// emulator.
type ConnectionConfig struct {
	ADBPath string `yaml:"adb_path"`
	Address string `yaml:"address"`
	Profile string `yaml:"profile"`
}

// Config is the merged controller configuration loaded from .dpconfig.
type Config struct {
	Connection     ConnectionConfig `yaml:"connection"`
	ClientChannel  ClientChannel    `yaml:"client_channel"`
	LauncherSocket string           `yaml:"launcher_socket"`
	EngineSocket   string           `yaml:"engine_socket"`
}
