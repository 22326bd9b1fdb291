package security

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"cart.write","orders.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"storefront-web": {ID: "storefront-web", Secret: "storefront-secret", Perms: []string{"cart.read", "cart.write", "orders.read", "orders.write"}, Enabled: true},
	"svc-support":    {ID: "svc-support", Secret: "support-secret", Perms: []string{"orders.read"}, Enabled: true},
}
