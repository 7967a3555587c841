package protocol

import "fmt"

// CorrelationKind enumerates the matching rules used to route an inbound
// envelope to a waiting caller.
type CorrelationKind uint8

const (
	// CorrelateRequestID matches the envelope whose request_id equals the key.
	CorrelateRequestID CorrelationKind = iota + 1
	// CorrelateMessageName matches the next envelope with the given name.
	CorrelateMessageName
	// CorrelateDomainID matches an envelope whose payload embeds the given
	// domain identifier, discovered only after parsing.
	CorrelateDomainID
)

// DomainKind names the application-level identifier space of a domain key.
type DomainKind string

// DomainOrder correlates by the order id embedded in position lifecycle
// events.
const DomainOrder DomainKind = "order"

// CorrelationKey is the comparable matching rule for one pending exchange.
type CorrelationKey struct {
	Kind   CorrelationKind
	Name   string
	Domain DomainKind
	ID     int64
}

// ByRequestID correlates on the envelope request_id.
func ByRequestID(id string) CorrelationKey {
	return CorrelationKey{Kind: CorrelateRequestID, Name: id}
}

// ByMessageName correlates on the next envelope carrying the given name.
func ByMessageName(name string) CorrelationKey {
	return CorrelationKey{Kind: CorrelateMessageName, Name: name}
}

// ByDomainID correlates on a domain identifier nested inside the payload.
func ByDomainID(kind DomainKind, id int64) CorrelationKey {
	return CorrelationKey{Kind: CorrelateDomainID, Domain: kind, ID: id}
}

func (k CorrelationKey) String() string {
	switch k.Kind {
	case CorrelateRequestID:
		return "request_id:" + k.Name
	case CorrelateMessageName:
		return "name:" + k.Name
	case CorrelateDomainID:
		return fmt.Sprintf("%s:%d", k.Domain, k.ID)
	default:
		return "unknown"
	}
}
