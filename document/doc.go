// Package document turns feed products into the text submitted for embedding.
//
// Normalize strips markup and decodes the handful of HTML entities storefronts
// commonly emit. It is best-effort cleanup, not an HTML parser: unmatched angle
// brackets survive and tags spanning lines are left alone.
//
// Compose renders a product as newline-separated labeled sections (name, SKU,
// price, stock, description, categories, color variants, minimum quantity,
// production days, dimensions, weight). Sections whose source field is absent
// are omitted. The description is capped at DescriptionLimit characters and at
// most MaxVariants variants are summarized, which keeps documents short and
// cheap to embed.
package document
