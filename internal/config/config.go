// internal/config/config.go
package config

type Config struct {
	Reader ReaderConfig `yaml:"reader" toml:"reader"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

type ReaderConfig struct {
	Source SourceConfig  `yaml:"source" toml:"source"`
	Poll   PollConfig    `yaml:"poll" toml:"poll"`
	Blocks []BlockConfig `yaml:"blocks" toml:"blocks"`
	Watch  []WatchConfig `yaml:"watch" toml:"watch"`
}

// ---- SOURCE ----

const (
	DriverModbus = "modbus"
	DriverSim    = "sim"

	AreaHolding = "holding"
	AreaInput   = "input"
)

type SourceConfig struct {
	Driver        string `yaml:"driver" toml:"driver"`
	Endpoint      string `yaml:"endpoint" toml:"endpoint"`
	TimeoutMs     int    `yaml:"timeout_ms" toml:"timeout_ms"`
	IdleTimeoutMs int    `yaml:"idle_timeout_ms" toml:"idle_timeout_ms"`

	// Modbus register table (holding | input)
	Area string `yaml:"area" toml:"area"`
}

// ---- POLL ----

const (
	StrategyPerBlock = "per_block"
	StrategyPool     = "pool"
)

type PollConfig struct {
	Strategy     string `yaml:"strategy" toml:"strategy"`
	IntervalMs   int    `yaml:"interval_ms" toml:"interval_ms"`
	ReconnectMs  int    `yaml:"reconnect_ms" toml:"reconnect_ms"`
	Workers      int    `yaml:"workers" toml:"workers"`
	IdleWaitMs   int    `yaml:"idle_wait_ms" toml:"idle_wait_ms"`
	StaleAfterMs int    `yaml:"stale_after_ms" toml:"stale_after_ms"` // 0 disables
}

// ---- BLOCK GEOMETRY ----

type BlockConfig struct {
	DB    int `yaml:"db" toml:"db"`
	Start int `yaml:"start" toml:"start"`
	Size  int `yaml:"size" toml:"size"`
}

// ---- WATCH (demo consumer) ----

type WatchConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Type   string `yaml:"type" toml:"type"` // bool | byte | int16 | uint16 | int32 | uint32 | float32
	DB     int    `yaml:"db" toml:"db"`
	Offset int    `yaml:"offset" toml:"offset"`
	Bit    int    `yaml:"bit" toml:"bit"` // bool only
}

// ---- LOG ----

type LogConfig struct {
	Level     string `yaml:"level" toml:"level"`
	NoColor   bool   `yaml:"no_color" toml:"no_color"`
	Timestamp *bool  `yaml:"timestamp" toml:"timestamp"`
}
