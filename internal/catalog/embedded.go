package catalog

import "github.com/sregle/vtubot/internal/models"

// EmbeddedServices is the compiled-in fallback catalog used when no cache
// exists and the provider cannot be reached. It is intentionally minimal:
// enough for the purchase flows to stay usable until an admin refresh.
func EmbeddedServices() models.ServicesCache {
	return models.ServicesCache{
		Source: "embedded",
		Data: []map[string]interface{}{
			{"id": 1, "type": "SME", "network": "MTN", "name": "MTN SME 500MB", "amount": 370},
			{"id": 2, "type": "SME", "network": "MTN", "name": "MTN SME 1GB", "amount": 620},
			{"id": 3, "type": "SME", "network": "MTN", "name": "MTN SME 2GB", "amount": 1240},
		},
		Cable: []map[string]interface{}{
			{"id": 1, "provider": "gotv", "name": "GOTV MAX", "amount": 8500},
			{"id": 5, "provider": "dstv", "name": "DSTV YANGA", "amount": 6000},
			{"id": 8, "provider": "dstv", "name": "DSTV PREMIUM", "amount": 44500},
		},
	}
}
