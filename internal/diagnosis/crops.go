package diagnosis

import "strings"

// Crop is one category the keyword rules recognize.
type Crop struct {
	Name     string   `json:"name"`
	Display  string   `json:"display"`
	Keywords []string `json:"keywords"`
	Advisory string   `json:"advisory"`
}

const genericAdvisory = "Monitor crop regularly for pest and disease outbreaks."

// crops is matched in order; the first crop with a keyword in the filename
// wins.
var crops = []Crop{
	{"rice", "Rice", []string{"rice", "paddy", "धान", "நெல்"},
		"Water management is critical. Maintain 2-3 inches standing water. Watch for rice blast in humid conditions."},
	{"wheat", "Wheat", []string{"wheat", "गेहूं", "கோதுமை"},
		"Sow in November-December. Needs 3-4 irrigations. Susceptible to rust - monitor weather."},
	{"tomato", "Tomato", []string{"tomato", "टमाटर", "தக்காளி"},
		"Use trellising system. Daily monitoring for late blight. Requires consistent water supply."},
	{"cotton", "Cotton", []string{"cotton", "कपास", "棉"},
		"Monitor for bollworms weekly. Use integrated pest management. Avoid waterlogging."},
	{"groundnut", "Groundnut", []string{"groundnut", "mungfali", "गंडु", "கடலை"},
		"Requires well-drained soil. Watch for leaf spot diseases. Harvest when leaves turn yellow."},
	{"sugarcane", "Sugarcane", []string{"sugarcane", "गन्ना", "கரும்பு"},
		"Heavy feeder crop. Needs 18-24 months. Monitor for red rot disease."},
	{"maize", "Maize", []string{"maize", "corn", "मक्का", "玉米"},
		"Susceptible to stem borers - use neem oil spray. Needs timely water at silking stage."},
	{"chilli", "Chilli", []string{"chilli", "pepper", "मिर्च", "மிளகாய்"},
		"Sensitive to water stress. Spider mites and thrips are major pests. Regular scouting needed."},
	{"soybean", "Soybean", []string{"soybean", "सोयाबीन", "சோயாபீன்"},
		"Crop rotation recommended. Monitor for rust. Harvest at pod maturity stage."},
	{"mustard", "Mustard", []string{"mustard", "सरसों", "芥末"},
		"Needs cool weather. Susceptible to alternaria blight in humid conditions."},
	{"potato", "Potato", []string{"potato", "आलू", "உருளை"},
		"Store in cool, dark place. Watch for late blight in monsoon season."},
	{"onion", "Onion", []string{"onion", "प्याज", "வெங்காயம்"},
		"Thrips and purple blotch are major issues. Avoid overwatering."},
}

var diseaseKeywords = []string{"disease", "sick", "brown", "rust", "blight", "rot"}

// Crops returns the supported categories in match order.
func Crops() []Crop {
	out := make([]Crop, len(crops))
	copy(out, crops)
	return out
}

// CropNames returns the lower-case names of the supported categories.
func CropNames() []string {
	names := make([]string, len(crops))
	for i, c := range crops {
		names[i] = c.Name
	}
	return names
}

// MatchCrop finds the first crop whose keywords occur in filename.
func MatchCrop(filename string) (Crop, bool) {
	lower := strings.ToLower(filename)
	for _, c := range crops {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				return c, true
			}
		}
	}
	return Crop{}, false
}

func looksDiseased(filename string) bool {
	lower := strings.ToLower(filename)
	for _, kw := range diseaseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
