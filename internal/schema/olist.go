package schema

// SQL types shared by the Olist tables.
const (
	typeText      = "TEXT"
	typeInteger   = "INTEGER"
	typeDouble    = "DOUBLE PRECISION"
	typeTimestamp = "TIMESTAMP"
	typeMoney     = "NUMERIC(12,2)"
)

// Olist returns the catalog of the Brazilian e-commerce extract. Column names
// match the upstream CSV headers, misspellings included.
func Olist() *Catalog {
	return NewCatalog(olistTables(), olistIndexes())
}

func olistTables() []Table {
	return []Table{
		{
			// many rows per zip prefix, so nothing references it
			Name:   "geolocation",
			Source: "olist_geolocation_dataset.csv",
			Columns: []Column{
				{"geolocation_zip_code_prefix", typeInteger},
				{"geolocation_lat", typeDouble},
				{"geolocation_lng", typeDouble},
				{"geolocation_city", typeText},
				{"geolocation_state", typeText},
			},
		},
		{
			Name:       "product_category_name_translation",
			Source:     "product_category_name_translation.csv",
			PrimaryKey: []string{"product_category_name"},
			Columns: []Column{
				{"product_category_name", typeText},
				{"product_category_name_english", typeText},
			},
		},
		{
			Name:       "customers",
			Source:     "olist_customers_dataset.csv",
			PrimaryKey: []string{"customer_id"},
			Columns: []Column{
				{"customer_id", typeText},
				{"customer_unique_id", typeText},
				{"customer_zip_code_prefix", typeInteger},
				{"customer_city", typeText},
				{"customer_state", typeText},
			},
		},
		{
			Name:       "sellers",
			Source:     "olist_sellers_dataset.csv",
			PrimaryKey: []string{"seller_id"},
			Columns: []Column{
				{"seller_id", typeText},
				{"seller_zip_code_prefix", typeInteger},
				{"seller_city", typeText},
				{"seller_state", typeText},
			},
		},
		{
			// categories without a translation exist upstream; no FK
			Name:       "products",
			Source:     "olist_products_dataset.csv",
			PrimaryKey: []string{"product_id"},
			After:      []string{"product_category_name_translation"},
			Columns: []Column{
				{"product_id", typeText},
				{"product_category_name", typeText},
				{"product_name_lenght", typeInteger},
				{"product_description_lenght", typeInteger},
				{"product_photos_qty", typeInteger},
				{"product_weight_g", typeInteger},
				{"product_length_cm", typeInteger},
				{"product_height_cm", typeInteger},
				{"product_width_cm", typeInteger},
			},
		},
		{
			Name:       "orders",
			Source:     "olist_orders_dataset.csv",
			PrimaryKey: []string{"order_id"},
			ForeignKeys: []ForeignKey{
				{Column: "customer_id", RefTable: "customers", RefColumn: "customer_id"},
			},
			Columns: []Column{
				{"order_id", typeText},
				{"customer_id", typeText},
				{"order_status", typeText},
				{"order_purchase_timestamp", typeTimestamp},
				{"order_approved_at", typeTimestamp},
				{"order_delivered_carrier_date", typeTimestamp},
				{"order_delivered_customer_date", typeTimestamp},
				{"order_estimated_delivery_date", typeTimestamp},
			},
		},
		{
			Name:       "order_items",
			Source:     "olist_order_items_dataset.csv",
			Mode:       LoadStaged,
			PrimaryKey: []string{"order_id", "order_item_id"},
			ForeignKeys: []ForeignKey{
				{Column: "order_id", RefTable: "orders", RefColumn: "order_id"},
				{Column: "product_id", RefTable: "products", RefColumn: "product_id"},
				{Column: "seller_id", RefTable: "sellers", RefColumn: "seller_id"},
			},
			RequireParents: []ForeignKey{
				{Column: "product_id", RefTable: "products", RefColumn: "product_id"},
				{Column: "seller_id", RefTable: "sellers", RefColumn: "seller_id"},
			},
			Columns: []Column{
				{"order_id", typeText},
				{"order_item_id", typeInteger},
				{"product_id", typeText},
				{"seller_id", typeText},
				{"shipping_limit_date", typeTimestamp},
				{"price", typeMoney},
				{"freight_value", typeMoney},
			},
		},
		{
			Name:       "order_payments",
			Source:     "olist_order_payments_dataset.csv",
			Mode:       LoadStaged,
			PrimaryKey: []string{"order_id", "payment_sequential"},
			ForeignKeys: []ForeignKey{
				{Column: "order_id", RefTable: "orders", RefColumn: "order_id"},
			},
			Columns: []Column{
				{"order_id", typeText},
				{"payment_sequential", typeInteger},
				{"payment_type", typeText},
				{"payment_installments", typeInteger},
				{"payment_value", typeMoney},
			},
		},
		{
			// Reviews may cite orders missing from the extract and are kept
			// as-is, so order_id carries no constraint.
			Name:       "order_reviews",
			Source:     "olist_order_reviews_dataset.csv",
			Mode:       LoadStaged,
			PrimaryKey: []string{"review_id"},
			After:      []string{"orders"},
			Columns: []Column{
				{"review_id", typeText},
				{"order_id", typeText},
				{"review_score", typeInteger},
				{"review_comment_title", typeText},
				{"review_comment_message", typeText},
				{"review_creation_date", typeTimestamp},
				{"review_answer_timestamp", typeTimestamp},
			},
		},
	}
}

func olistIndexes() []Index {
	return []Index{
		{Name: "idx_orders_customer_id", Table: "orders", Columns: []string{"customer_id"}},
		{Name: "idx_order_items_order_id", Table: "order_items", Columns: []string{"order_id"}},
		{Name: "idx_order_items_product_id", Table: "order_items", Columns: []string{"product_id"}},
		{Name: "idx_order_items_seller_id", Table: "order_items", Columns: []string{"seller_id"}},
		{Name: "idx_payments_order_id", Table: "order_payments", Columns: []string{"order_id"}},
		{Name: "idx_reviews_order_id", Table: "order_reviews", Columns: []string{"order_id"}},
		{Name: "idx_products_category", Table: "products", Columns: []string{"product_category_name"}},
		{Name: "idx_customers_zip", Table: "customers", Columns: []string{"customer_zip_code_prefix"}},
		{Name: "idx_sellers_zip", Table: "sellers", Columns: []string{"seller_zip_code_prefix"}},
	}
}
