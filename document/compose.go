package document

import (
	"strings"

	"github.com/poiesic/catalogsync/core"
)

const (
	// DescriptionLimit caps the normalized description, in characters.
	DescriptionLimit = 300

	// MaxVariants caps the number of variant summaries.
	MaxVariants = 5

	colorAttribute = "Color"
)

// Compose renders a product as the document used for embedding.
func Compose(p *core.Product) string {
	if p == nil {
		return ""
	}

	basePrice := p.Price.Or("0")
	sections := []string{
		"Producto: " + p.Name.Or("Sin nombre"),
		"SKU: " + p.SKU.Or("N/A"),
		"Precio: $" + basePrice + " " + p.Currency.Or("ARS"),
		"Stock disponible: " + p.Stock.Or("0") + " unidades",
	}

	if desc := Normalize(p.Description.String()); desc != "" {
		sections = append(sections, "Descripción: "+Truncate(desc, DescriptionLimit))
	}

	if cats := categoryNames(p.Categories); len(cats) > 0 {
		sections = append(sections, "Categorías: "+strings.Join(cats, ", "))
	}

	if variants := variantSummaries(p.Variants, basePrice); len(variants) > 0 {
		sections = append(sections, "Variantes: "+strings.Join(variants, ", "))
	}

	if !p.MinimumRecommendedQuantity.IsZero() {
		sections = append(sections, "Cantidad mínima: "+p.MinimumRecommendedQuantity.String())
	}

	if !p.ProductionDays.IsZero() {
		sections = append(sections, "Días de producción: "+p.ProductionDays.String())
	}

	if d := p.Dimensions; !d.IsZero() {
		sections = append(sections, "Dimensiones: "+
			d.Length.Or("0")+"x"+d.Width.Or("0")+"x"+d.Height.Or("0")+" cm")
	}

	if !p.Weight.IsZero() {
		sections = append(sections, "Peso: "+p.Weight.String()+"g")
	}

	return strings.Join(sections, "\n")
}

// categoryNames returns unique non-empty names in first-seen order.
func categoryNames(categories []core.Category) []string {
	seen := make(map[string]struct{}, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name.String())
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// variantSummaries renders the variants among the first MaxVariants that carry
// a Color attribute. Variants past the cap are never considered.
func variantSummaries(variants []core.Variant, basePrice string) []string {
	if len(variants) > MaxVariants {
		variants = variants[:MaxVariants]
	}
	summaries := make([]string, 0, len(variants))
	for i := range variants {
		color, ok := variants[i].Attribute(colorAttribute)
		if !ok || color == "" {
			continue
		}
		summaries = append(summaries, color+" ("+variants[i].Stock.Or("0")+" unid, $"+variants[i].Price.Or(basePrice)+")")
	}
	return summaries
}
