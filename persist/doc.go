// Package persist is the entry point for reading object graphs.
//
// A Manager serves every persistence unit of a catalog with its own store
// client and resolves the relationships of the entities it reads, following
// relations across units:
//
//	cfg, _ := persist.LoadConfig("polystore.yaml")
//	m, err := persist.Open(ctx, cfg, catalog)
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//	order, err := m.Find(ctx, "Order", "o1")
package persist
