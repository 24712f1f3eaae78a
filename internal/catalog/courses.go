package catalog

// Sense names used as planets.
const (
	SenseSight = "sight"
	SenseTouch = "touch"
	SenseSound = "sound"
	SenseTaste = "taste"
	SenseSmell = "smell"
)

var senseTitles = map[string]Title{
	SenseSight: {EN: "Sight", DE: "Sehen"},
	SenseTouch: {EN: "Touch", DE: "Tasten"},
	SenseSound: {EN: "Sound", DE: "Hören"},
	SenseTaste: {EN: "Taste", DE: "Schmecken"},
	SenseSmell: {EN: "Smell", DE: "Riechen"},
}

// studioCourses is the course table.  DisplayKey values key the credit
// balances of existing profiles and must not change.
var studioCourses = []Course{
	{Path: "/pottery", DisplayKey: "pottery tuesdays", Title: Title{EN: "Pottery Tuesdays", DE: "Töpfern am Dienstag"}, Senses: []string{SenseTouch}},
	{Path: "/wheel-throwing", DisplayKey: "wheel throwing", Title: Title{EN: "Wheel Throwing", DE: "Drehen an der Scheibe"}, Senses: []string{SenseTouch}},
	{Path: "/life-drawing", DisplayKey: "life drawing", Title: Title{EN: "Life Drawing", DE: "Aktzeichnen"}, Senses: []string{SenseSight}},
	{Path: "/watercolor", DisplayKey: "watercolor evenings", Title: Title{EN: "Watercolor Evenings", DE: "Aquarellabende"}, Senses: []string{SenseSight}},
	{Path: "/printmaking", DisplayKey: "printmaking", Title: Title{EN: "Printmaking", DE: "Druckwerkstatt"}, Senses: []string{SenseSight, SenseTouch}},
	{Path: "/sound-bath", DisplayKey: "sound bath", Title: Title{EN: "Sound Bath", DE: "Klangbad"}, Senses: []string{SenseSound}},
	{Path: "/singing-circle", DisplayKey: "singing circle", Title: Title{EN: "Singing Circle", DE: "Singkreis"}, Senses: []string{SenseSound}},
	{Path: "/natural-dyes", DisplayKey: "natural dyeing", Title: Title{EN: "Natural Dyeing", DE: "Färben mit Pflanzen"}, Senses: []string{SenseSmell, SenseSight}},
	{Path: "/fermentation", DisplayKey: "fermentation workshop", Title: Title{EN: "Fermentation Workshop", DE: "Fermentier-Workshop"}, Senses: []string{SenseTaste, SenseSmell}},
	{Path: "/open-studio", DisplayKey: "open studio", Title: Title{EN: "Open Studio", DE: "Offenes Atelier"}, Senses: []string{SenseTouch, SenseSight}},
}

// Default returns the studio's course table.
func Default() *Catalog { return New(senseTitles, studioCourses) }
