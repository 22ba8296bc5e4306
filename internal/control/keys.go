package control

import "github.com/care/posturewatch/internal/config"

// KeyEscape exits the monitor
const KeyEscape = 27

var keyFeatures = map[int]config.Feature{
	's': config.FeatureSoundAlerts,
	'v': config.FeatureVisualAlerts,
	'k': config.FeatureSkeleton,
	'a': config.FeatureAngles,
	'm': config.FeatureMirrorView,
	'd': config.FeatureDisplayStats,
	'r': config.FeatureRecordSession,
}

// KeyCommand maps a key press to a command. Unbound keys return false.
func KeyCommand(key int) (Command, bool) {
	if key == KeyEscape {
		return Command{Command: CmdShutdown, Source: "keyboard"}, true
	}
	f, ok := keyFeatures[key]
	if !ok {
		return Command{}, false
	}
	return Command{
		Command: CmdToggle,
		Params:  map[string]interface{}{"feature": string(f)},
		Source:  "keyboard",
	}, true
}
