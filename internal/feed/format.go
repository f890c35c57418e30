package feed

import (
	"fmt"
	"strings"
)

// IconKey is a symbolic icon identifier resolved by the presentation layer.
type IconKey string

const (
	IconNote        IconKey = "note"
	IconCheck       IconKey = "check-circle"
	IconSprout      IconKey = "sprout"
	IconHarvest     IconKey = "basket"
	IconGrowthStage IconKey = "trending-up"
	IconSpace       IconKey = "home"
	IconDefault     IconKey = "activity"
)

var icons = map[Type]IconKey{
	TypeNoteCreated:        IconNote,
	TypeTaskCompleted:      IconCheck,
	TypePlantAdded:         IconSprout,
	TypePlantHarvested:     IconHarvest,
	TypePlantStatusChanged: IconGrowthStage,
	TypeSpaceCreated:       IconSpace,
}

// Icon maps a discriminant to its icon. Unknown types get IconDefault.
func Icon(t Type) IconKey {
	if icon, ok := icons[t]; ok {
		return icon
	}
	return IconDefault
}

// UnknownDescription is returned for activities FormatDescription cannot render.
const UnknownDescription = "Unknown activity"

// FormatDescription renders a one-line, human-readable sentence for the activity.
func FormatDescription(a Activity) string {
	switch d := a.Data.(type) {
	case NoteCreated:
		subject := "a note"
		if d.Category != "" {
			subject = fmt.Sprintf("%s %s note", article(string(d.Category)), d.Category)
		}
		switch {
		case d.PlantName != "":
			return fmt.Sprintf("Added %s for %s", subject, d.PlantName)
		case d.SpaceName != "":
			return fmt.Sprintf("Added %s in %s", subject, d.SpaceName)
		default:
			return fmt.Sprintf("Added %s", subject)
		}
	case TaskCompleted:
		switch {
		case d.PlantName != "":
			return fmt.Sprintf("Completed task %q for %s", d.Title, d.PlantName)
		case d.SpaceName != "":
			return fmt.Sprintf("Completed task %q in %s", d.Title, d.SpaceName)
		default:
			return fmt.Sprintf("Completed task %q", d.Title)
		}
	case PlantAdded:
		name := plantLabel(d.PlantName, d.Variety)
		if d.SpaceName != "" {
			return fmt.Sprintf("Added %s to %s", name, d.SpaceName)
		}
		return fmt.Sprintf("Added %s", name)
	case PlantHarvested:
		days := d.DaysToHarvest(a.Timestamp)
		if days >= 0 {
			return fmt.Sprintf("Harvested %s after %d days", plantLabel(d.PlantName, d.Variety), days)
		}
		return fmt.Sprintf("Harvested %s", plantLabel(d.PlantName, d.Variety))
	case PlantStatusChanged:
		if d.From != "" {
			return fmt.Sprintf("%s moved from %s to %s", d.PlantName, d.From, d.To)
		}
		return fmt.Sprintf("%s is now %s", d.PlantName, d.To)
	case SpaceCreated:
		if d.SpaceType != "" {
			return fmt.Sprintf("Created %s %s", d.SpaceType, d.SpaceName)
		}
		return fmt.Sprintf("Created grow space %s", d.SpaceName)
	default:
		return UnknownDescription
	}
}

func plantLabel(name, variety string) string {
	if strings.TrimSpace(variety) == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, variety)
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an"
	}
	return "a"
}
