package importer

import (
	"bytes"
	"encoding/csv"
)

// TemplateFileName is the downloadable template artifact's name.
const TemplateFileName = "product-import-template.csv"

// templateColumns is the full header row: required columns first, then the
// optional ones in schema order.
var templateColumns = []string{
	ColTitle,
	ColShortDescription,
	ColApplicationSlug,
	ColCategorySlug,
	ColPrice,
	ColMRP,
	ColSubcategorySlug,
	ColElevatorTypes,
	ColCollections,
	ColSKU,
	ColVariantTitle,
	"variant_option_1_name",
	"variant_option_1_value",
	"variant_option_2_name",
	"variant_option_2_value",
	"variant_option_3_name",
	"variant_option_3_value",
	ColAttributes,
	ColTrackInventory,
	ColStock,
	ColStatus,
}

// templateRows are example rows showing a two-variant product.
var templateRows = [][]string{
	{
		"Gearless Traction Motor", "Compact gearless traction machine for MRL installations",
		"passenger-elevators", "traction-machines", "4999.00", "5499.00",
		"gearless", "mrl,high-rise", "featured",
		"GTM-220-01", "220V", "Voltage", "220V", "", "", "", "",
		`{"warranty_months": 24}`, "true", "12", "active",
	},
	{
		"Gearless Traction Motor", "Compact gearless traction machine for MRL installations",
		"passenger-elevators", "traction-machines", "5299.00", "5799.00",
		"gearless", "mrl,high-rise", "featured",
		"GTM-380-01", "380V", "Voltage", "380V", "", "", "", "",
		`{"warranty_months": 24}`, "true", "8", "active",
	},
}

// TemplateCSV renders the import template: the header row plus example rows.
func TemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(templateColumns)
	for _, row := range templateRows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
