package clientconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/pas-client-core/internal/infrastructure/pki"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/settings"
)

// Settings file layout.
const (
	rootGroup = "UaClientConfig"

	defaultDiscoveryURL  = "opc.tcp://172.17.0.201:48010"
	defaultPositionerURL = "opc.tcp://127.0.0.1:4840"
)

// Connection holds the session parameters and node lists read from the
// UaClientConfig group of the settings file.
type Connection struct {
	ApplicationName     string
	Certificates        pki.Locations
	AutomaticReconnect  bool
	RetryInitialConnect bool
	DiscoveryURL        string
	PositionerURL       string

	NamespaceArray []string
	NodesToRead    []*ua.NodeID
	NodesToWrite   []*ua.NodeID
	NodesToMonitor []*ua.NodeID

	// WriteValues parallels NodesToWrite. An entry is nil when its value
	// could not be converted to the configured data type.
	WriteValues []*ua.Variant
}

// ParseConnection reads a Connection from a settings file.
//
// Missing keys take their defaults: AutomaticReconnect true,
// RetryInitialConnect false, the discovery and positioner URLs as in the
// deployed setup. Malformed scalars, lists or node ids fail with
// settings.ErrParse. Write values that cannot be converted are reported
// through badValue and left nil.
func ParseConnection(f *settings.File, simHost string, badValue func(index int, err error)) (*Connection, error) {
	g := f.Group(rootGroup)
	c := &Connection{}

	var errs []error
	str := func(key, def string) string {
		v, err := g.String(key, def)
		errs = append(errs, err)
		return v
	}
	flag := func(key string, def bool) bool {
		v, err := g.Bool(key, def)
		errs = append(errs, err)
		return v
	}

	c.Certificates = pki.Locations{
		TrustList:          str("CertificateTrustListLocation", ""),
		RevocationList:     str("CertificateRevocationListLocation", ""),
		IssuersCertificate: str("IssuersCertificatesLocation", ""),
		IssuersRevocation:  str("IssuersRevocationListLocation", ""),
		ClientCertificate:  str("ClientCertificate", ""),
		ClientPrivateKey:   str("ClientPrivateKey", ""),
	}
	c.ApplicationName = str("ApplicationName", "")
	c.AutomaticReconnect = flag("AutomaticReconnect", true)
	c.RetryInitialConnect = flag("RetryInitialConnect", false)

	discovery := defaultDiscoveryURL
	if simHost != "" {
		discovery = fmt.Sprintf("opc.tcp://%s:48010", simHost)
	}
	c.DiscoveryURL = str("DiscoveryURL", discovery)
	c.PositionerURL = str("PositionerURL", defaultPositionerURL)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var err error
	if c.NamespaceArray, err = g.Group("NSArray").List("NameSpaceUri"); err != nil {
		return nil, err
	}
	if c.NodesToRead, err = nodeList(g.Group("NodesToRead")); err != nil {
		return nil, err
	}
	if c.NodesToMonitor, err = nodeList(g.Group("NodesToMonitor")); err != nil {
		return nil, err
	}

	write := g.Group("NodesToWrite")
	if c.NodesToWrite, err = nodeList(write); err != nil {
		return nil, err
	}
	if c.WriteValues, err = writeValues(write, len(c.NodesToWrite), badValue); err != nil {
		return nil, err
	}

	return c, nil
}

// nodeList parses the VariableNN entries of a list group. An empty entry
// is the null node id.
func nodeList(g settings.Group) ([]*ua.NodeID, error) {
	raw, err := g.List("Variable")
	if err != nil {
		return nil, err
	}

	nodes := make([]*ua.NodeID, len(raw))
	for i, s := range raw {
		if strings.TrimSpace(s) == "" {
			nodes[i] = ua.NewTwoByteNodeID(0)
			continue
		}
		id, err := ua.ParseNodeID(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", settings.ErrParse, g.Name(), settings.Key("Variable", i), err)
		}
		nodes[i] = id
	}
	return nodes, nil
}

func writeValues(g settings.Group, n int, badValue func(int, error)) ([]*ua.Variant, error) {
	types, err := g.Indexed("DataType", n)
	if err != nil {
		return nil, err
	}
	texts, err := g.Indexed("Value", n)
	if err != nil {
		return nil, err
	}

	values := make([]*ua.Variant, n)
	for i := range values {
		v, err := convertValue(types[i], texts[i])
		if err != nil {
			if badValue != nil {
				badValue(i, err)
			}
			continue
		}
		values[i] = v
	}
	return values, nil
}

// convertValue builds a variant of the OPC UA built-in type named by its
// numeric id, e.g. "11" for Double.
func convertValue(typeID, text string) (*ua.Variant, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(typeID), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("data type %q: %w", typeID, err)
	}
	text = strings.TrimSpace(text)

	var v any
	switch ua.TypeID(id) {
	case ua.TypeIDBoolean:
		v, err = strconv.ParseBool(text)
	case ua.TypeIDSByte:
		v, err = parseInt[int8](text, 8)
	case ua.TypeIDByte:
		v, err = parseUint[uint8](text, 8)
	case ua.TypeIDInt16:
		v, err = parseInt[int16](text, 16)
	case ua.TypeIDUint16:
		v, err = parseUint[uint16](text, 16)
	case ua.TypeIDInt32:
		v, err = parseInt[int32](text, 32)
	case ua.TypeIDUint32:
		v, err = parseUint[uint32](text, 32)
	case ua.TypeIDInt64:
		v, err = parseInt[int64](text, 64)
	case ua.TypeIDUint64:
		v, err = parseUint[uint64](text, 64)
	case ua.TypeIDFloat:
		var f float64
		f, err = strconv.ParseFloat(text, 32)
		v = float32(f)
	case ua.TypeIDDouble:
		v, err = strconv.ParseFloat(text, 64)
	case ua.TypeIDString:
		v = text
	default:
		return nil, fmt.Errorf("unsupported data type %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("value %q as type %d: %w", text, id, err)
	}
	return ua.NewVariant(v)
}

func parseInt[T int8 | int16 | int32 | int64](s string, bits int) (T, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	return T(n), err
}

func parseUint[T uint8 | uint16 | uint32 | uint64](s string, bits int) (T, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	return T(n), err
}
