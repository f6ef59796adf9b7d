package engine

// DefaultIndexName is the index product documents are written to.
const DefaultIndexName = "products"

// IndexMapping is the settings and mapping body for the products index,
// shared by the Elasticsearch and OpenSearch backends. Text fields use the
// standard analyzer and carry a keyword sub-field for exact matching.
const IndexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "default": { "type": "standard" }
      }
    }
  },
  "mappings": {
    "properties": {
      "name":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":    { "type": "text" },
      "mrp_price":      { "type": "float" },
      "discount_price": { "type": "float" },
      "quantity":       { "type": "integer" },
      "category_id":    { "type": "integer" },
      "category_name":  { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } }
    }
  }
}`
