package format

// Icon is one entry of the chat platform's custom icon catalog.
type Icon struct {
	Name  string
	Glyph string
}

// Energy icon names, one per denomination.
const (
	IconEnergy1 = "energy1"
	IconEnergy2 = "energy2"
	IconEnergy3 = "energy3"
)

// Entity is a named game entity whose display name can be replaced by an icon.
type Entity struct {
	DisplayName string
	IconName    string
}

// Entities lists the spirits the game application names at the start of log lines.
var Entities = []Entity{
	{"Lightning's Swift Strike", "lightning"},
	{"River Surges in Sunlight", "river"},
	{"Vital Strength of the Earth", "earth"},
	{"Shadows Flicker Like Flame", "shadows"},
	{"Thunderspeaker", "thunderspeaker"},
	{"A Spread of Rampant Green", "green"},
	{"Ocean's Hungry Grasp", "ocean"},
	{"Bringer of Dreams and Nightmares", "bringer"},
	{"Keeper of the Forbidden Wilds", "keeper"},
	{"Sharp Fangs Behind the Leaves", "fangs"},
	{"Heart of the Wildfire", "wildfire"},
	{"Serpent Slumbering Beneath the Island", "serpent"},
	{"Stone's Unyielding Defiance", "stone"},
	{"Shifting Memory of Ages", "memory"},
	{"Grinning Trickster Stirs Up Trouble", "trickster"},
	{"Lure of the Deep Wilderness", "lure"},
	{"Many Minds Move as One", "minds"},
	{"Volcano Looming High", "volcano"},
	{"Shroud of Silent Mist", "mist"},
	{"Vengeance as a Burning Plague", "vengeance"},
	{"Starlight Seeks Its Form", "starlight"},
	{"Fractured Days Split the Sky", "fractured"},
	{"Downpour Drenches the World", "downpour"},
	{"Finder of Paths Unseen", "finder"},
	{"Devouring Teeth Lurk Underfoot", "teeth"},
	{"Eyes Watch From the Trees", "eyes"},
	{"Fathomless Mud of the Swamp", "mud"},
	{"Rising Heat of Stone and Sand", "heat"},
	{"Sun-Bright Whirlwind", "whirlwind"},
	{"Ember-Eyed Behemoth", "behemoth"},
	{"Hearth-Vigil", "hearth"},
	{"Towering Roots of the Jungle", "roots"},
	{"Breath of Darkness Down Your Spine", "darkness"},
	{"Relentless Gaze of the Sun", "sun"},
	{"Wandering Voice Keens Delirium", "voice"},
	{"Wounded Waters Bleeding", "waters"},
	{"Dances Up Earthquakes", "earthquakes"},
	{"Toward the Paralyzing Frost", "frost"},
}

// IconRegistry maps the icon names the relay understands to their glyphs.
// It is built once at startup and never modified.
type IconRegistry struct {
	glyphs map[string]string
}

// NewIconRegistry builds a registry from a catalog, keeping only the entity and
// energy icon names. Names missing from the catalog are simply absent.
func NewIconRegistry(catalog []Icon) *IconRegistry {
	known := map[string]bool{
		IconEnergy1: true,
		IconEnergy2: true,
		IconEnergy3: true,
	}
	for _, e := range Entities {
		known[e.IconName] = true
	}

	glyphs := make(map[string]string)
	for _, icon := range catalog {
		if known[icon.Name] && icon.Glyph != "" {
			glyphs[icon.Name] = icon.Glyph
		}
	}
	return &IconRegistry{glyphs: glyphs}
}

// Glyph returns the glyph for an icon name.
func (r *IconRegistry) Glyph(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	g, ok := r.glyphs[name]
	return g, ok
}

// Len returns the number of registered icons.
func (r *IconRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.glyphs)
}
