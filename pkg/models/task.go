package models

import "encoding/json"

// TaskKind identifies the kind of automation a task performs.
type TaskKind string

const (
	KindStartup     TaskKind = "startup"
	KindRecruit     TaskKind = "recruit"
	KindInfrast     TaskKind = "infrast"
	KindFight       TaskKind = "fight"
	KindMall        TaskKind = "mall"
	KindAward       TaskKind = "award"
	KindRoguelike   TaskKind = "roguelike"
	KindReclamation TaskKind = "reclamation"
)

// engineNames maps task kinds to the task type identifiers the engine expects.
var engineNames = map[TaskKind]string{
	KindStartup:     "StartUp",
	KindRecruit:     "Recruit",
	KindInfrast:     "Infrast",
	KindFight:       "Fight",
	KindMall:        "Mall",
	KindAward:       "Award",
	KindRoguelike:   "Roguelike",
	KindReclamation: "ReclamationAlgorithm",
}

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	_, ok := engineNames[k]
	return ok
}

// EngineName returns the engine-side task type identifier for the kind.
func (k TaskKind) EngineName() string {
	return engineNames[k]
}

// StartupConfig configures a Startup task. StartGameEnabled asks the
// controller to launch the target application before connecting; it is only
// meaningful with a concrete client channel.
type StartupConfig struct {
	ClientChannel    ClientChannel `yaml:"client_channel" json:"client_type,omitempty"`
	StartGameEnabled bool          `yaml:"start_game_enabled" json:"start_game_enabled"`
}

// FightConfig configures a Fight task.
type FightConfig struct {
	Stage    string `yaml:"stage" json:"stage"`
	Medicine int    `yaml:"medicine" json:"medicine"`
	Stone    int    `yaml:"stone" json:"stone"`
	Times    int    `yaml:"times" json:"times"`
	Series   int    `yaml:"series,omitempty" json:"series,omitempty"`
}

// RecruitConfig configures a Recruit task.
type RecruitConfig struct {
	Refresh  bool  `yaml:"refresh" json:"refresh"`
	Select   []int `yaml:"select" json:"select"`
	Confirm  []int `yaml:"confirm" json:"confirm"`
	Times    int   `yaml:"times" json:"times"`
	Expedite bool  `yaml:"expedite" json:"expedite"`
}

// InfrastConfig configures an Infrast (base management) task.
type InfrastConfig struct {
	Facilities []string `yaml:"facilities" json:"facility"`
	Drones     string   `yaml:"drones" json:"drones"`
	Threshold  float64  `yaml:"threshold" json:"threshold"`
}

// MallConfig configures a Mall (credit shopping) task.
type MallConfig struct {
	Shopping  bool     `yaml:"shopping" json:"shopping"`
	BuyFirst  []string `yaml:"buy_first" json:"buy_first"`
	Blacklist []string `yaml:"blacklist" json:"blacklist"`
}

// AwardConfig configures an Award task. Award collection has no standalone
// engine submission; the variant carries display preferences only.
type AwardConfig struct {
	Award bool `yaml:"award" json:"award"`
	Mail  bool `yaml:"mail" json:"mail"`
}

// RoguelikeConfig configures a Roguelike task.
type RoguelikeConfig struct {
	Theme       string `yaml:"theme" json:"theme"`
	Mode        int    `yaml:"mode" json:"mode"`
	StartsCount int    `yaml:"starts_count" json:"starts_count"`
	Squad       string `yaml:"squad,omitempty" json:"squad,omitempty"`
}

// ReclamationConfig configures a Reclamation task.
type ReclamationConfig struct {
	Theme string `yaml:"theme" json:"theme"`
	Mode  int    `yaml:"mode" json:"mode"`
}

// Task is a user-defined automation task. Exactly one of the config fields
// matching Kind is expected to be set; the others stay nil.
type Task struct {
	Kind    TaskKind `yaml:"kind"`
	Name    string   `yaml:"name,omitempty"`
	Enabled bool     `yaml:"enabled"`

	Startup     *StartupConfig     `yaml:"startup,omitempty"`
	Fight       *FightConfig       `yaml:"fight,omitempty"`
	Recruit     *RecruitConfig     `yaml:"recruit,omitempty"`
	Infrast     *InfrastConfig     `yaml:"infrast,omitempty"`
	Mall        *MallConfig        `yaml:"mall,omitempty"`
	Award       *AwardConfig       `yaml:"award,omitempty"`
	Roguelike   *RoguelikeConfig   `yaml:"roguelike,omitempty"`
	Reclamation *ReclamationConfig `yaml:"reclamation,omitempty"`
}

// Params returns the engine-submittable JSON payload for the task. ok is
// false when the task is disabled, its kind has no standalone engine
// submission (Award), or no configuration is present for the kind.
func (t Task) Params() (params string, ok bool) {
	if !t.Enabled {
		return "", false
	}

	var cfg any
	switch t.Kind {
	case KindStartup:
		if t.Startup == nil {
			return "", false
		}
		cfg = t.Startup
	case KindFight:
		if t.Fight == nil {
			return "", false
		}
		cfg = t.Fight
	case KindRecruit:
		if t.Recruit == nil {
			return "", false
		}
		cfg = t.Recruit
	case KindInfrast:
		if t.Infrast == nil {
			return "", false
		}
		cfg = t.Infrast
	case KindMall:
		if t.Mall == nil {
			return "", false
		}
		cfg = t.Mall
	case KindRoguelike:
		if t.Roguelike == nil {
			return "", false
		}
		cfg = t.Roguelike
	case KindReclamation:
		if t.Reclamation == nil {
			return "", false
		}
		cfg = t.Reclamation
	default:
		// Award and unknown kinds are never submitted standalone.
		return "", false
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Normalize enforces the startup invariant: with no client channel selected
// there is no application bundle to launch, so the start-app flag is cleared.
func (t *Task) Normalize() {
	if t.Kind == KindStartup && t.Startup != nil && t.Startup.ClientChannel == ChannelDefault {
		t.Startup.StartGameEnabled = false
	}
}

// AutoLaunch reports whether the task asks the controller to launch the
// target application before the session connects.
func (t Task) AutoLaunch() bool {
	return t.Kind == KindStartup && t.Enabled && t.Startup != nil && t.Startup.StartGameEnabled
}
