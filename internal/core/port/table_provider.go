package port

import "github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"

// TableProvider resolves versioned tariff tables by key.
type TableProvider interface {
	GetTable(key string) domain.TariffTable
	GetEntry(key string) (*domain.TableEntry, bool)
	ListTableKeys() []string
}
