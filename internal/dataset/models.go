package dataset

// Column names as they appear in the source datasets.
const (
	ColDistrict   = "District"
	ColSoilType   = "Soil_Type"
	ColCrop       = "crop"
	ColMajorCrops = "Major_Crops"

	ColAvgRainfall            = "Avg_Rainfall_mm"
	ColAvgTemperature         = "Avg_Temperature_C"
	ColFertilizerUsage        = "Fertilizer_Usage_kg_per_ha"
	ColPHLevel                = "pH_Level"
	ColNitrogen               = "Nitrogen_kg_per_ha"
	ColPhosphorus             = "Phosphorus_kg_per_ha"
	ColPotassium              = "Potassium_kg_per_ha"
	ColOrganicMatter          = "Organic_Matter_Percentage"
	ColClay                   = "Clay_Percentage"
	ColElectricalConductivity = "Electrical_Conductivity_dS_per_m"
	ColCationExchange         = "Cation_Exchange_Capacity_meq_per_100g"
	ColZinc                   = "Zinc_ppm"
	ColIron                   = "Iron_ppm"
	ColManganese              = "Manganese_ppm"
	ColCopper                 = "Copper_ppm"
	ColMandiPrice             = "Mandi_Price_Rupees_per_kg"
	ColProductionRate         = "Crop_Production_Rate_Yearly"
)

// NumericColumns lists the agronomic attributes the loaders parse strictly.
// Other non-key columns are kept when they parse as numbers and skipped
// otherwise.
var NumericColumns = []string{
	ColAvgRainfall,
	ColAvgTemperature,
	ColFertilizerUsage,
	ColPHLevel,
	ColNitrogen,
	ColPhosphorus,
	ColPotassium,
	ColOrganicMatter,
	ColClay,
	ColElectricalConductivity,
	ColCationExchange,
	ColZinc,
	ColIron,
	ColManganese,
	ColCopper,
	ColMandiPrice,
	ColProductionRate,
}

// Record is one row of agronomic reference data.
type Record struct {
	District string             `json:"district" db:"district"`
	SoilType string             `json:"soil_type" db:"soil_type"`
	Crop     string             `json:"crop" db:"crop"`
	Values   map[string]float64 `json:"values"`
}

// Value returns the numeric attribute stored under col.
func (r Record) Value(col string) (float64, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// CropStats are aggregate figures for a single crop across the dataset.
type CropStats struct {
	Crop          string   `json:"crop"`
	Rows          int      `json:"rows"`
	AvgProduction *float64 `json:"avg_production,omitempty"`
	AvgMandiPrice *float64 `json:"avg_mandi_price,omitempty"`
}
