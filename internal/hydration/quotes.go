package hydration

var quotes = []string{
	"Water is the driving force of all nature.",
	"Drink water. Your body will thank you.",
	"Stay hydrated, stay focused.",
	"A glass a day keeps the fatigue away. Make it eight.",
	"Thousands have lived without love, not one without water.",
	"Hydration is the foundation of good health.",
	"Small sips, big difference.",
	"Pure water is the world's first and foremost medicine.",
}
