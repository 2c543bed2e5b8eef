package topology

import (
	"encoding/json"
	"errors"
	"testing"
)

func doc(listeners []ListenerSpec, relayers []RelayerSpec) *Document {
	return &Document{Listeners: listeners, Relayers: relayers}
}

func baseRelayer(id, dest string) RelayerSpec {
	return RelayerSpec{RelayerType: EthereumFamily, ID: id, DestinationID: dest, Config: []byte(`{}`)}
}

func baseListener(id string, chainID uint32, relayerIDs ...string) ListenerSpec {
	return ListenerSpec{ListenerType: EthereumFamily, ID: id, ChainID: chainID, RelayerIDs: relayerIDs, Config: []byte(`{}`)}
}

func assertRule(t *testing.T, err error, rule string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a validation error, got nil")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if verr.Rule != rule {
		t.Fatalf("expected rule %s, got %s (%v)", rule, verr.Rule, err)
	}
}

func TestValidateScenarioS6DuplicateListenerID(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1"), baseListener("L1", 2, "R1")},
		[]RelayerSpec{baseRelayer("R1", "d1")},
	)
	assertRule(t, Validate(d), "V1")
}

func TestValidateDuplicateChainID(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1"), baseListener("L2", 1, "R1")},
		[]RelayerSpec{baseRelayer("R1", "d1")},
	)
	assertRule(t, Validate(d), "V2")
}

func TestValidateEmptyRelayersList(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1)},
		[]RelayerSpec{baseRelayer("R1", "d1")},
	)
	assertRule(t, Validate(d), "V3")
}

func TestValidateUndefinedRelayerRef(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "RX")},
		[]RelayerSpec{baseRelayer("R1", "d1")},
	)
	assertRule(t, Validate(d), "V4")
}

func TestValidateDuplicateRelayerID(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1")},
		[]RelayerSpec{baseRelayer("R1", "d1"), baseRelayer("R1", "d2")},
	)
	assertRule(t, Validate(d), "V5")
}

func TestValidateDuplicateDestinationID(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1", "R2")},
		[]RelayerSpec{baseRelayer("R1", "dup"), baseRelayer("R2", "dup")},
	)
	assertRule(t, Validate(d), "V6")
}

func TestValidateUnusedRelayer(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1")},
		[]RelayerSpec{baseRelayer("R1", "d1"), baseRelayer("R2", "d2")},
	)
	assertRule(t, Validate(d), "V7")
}

func TestValidateUnknownListenerType(t *testing.T) {
	l := baseListener("L1", 1, "R1")
	l.ListenerType = "bitcoin-family"
	d := doc([]ListenerSpec{l}, []RelayerSpec{baseRelayer("R1", "d1")})
	assertRule(t, Validate(d), "V8")
}

func TestValidateUnknownRelayerType(t *testing.T) {
	r := baseRelayer("R1", "d1")
	r.RelayerType = "bitcoin-family"
	d := doc([]ListenerSpec{baseListener("L1", 1, "R1")}, []RelayerSpec{r})
	assertRule(t, Validate(d), "V8")
}

func TestValidateWellFormedDocumentPasses(t *testing.T) {
	d := doc(
		[]ListenerSpec{baseListener("L1", 1, "R1", "R2")},
		[]RelayerSpec{baseRelayer("R1", "d1"), baseRelayer("R2", "d2")},
	)
	if err := Validate(d); err != nil {
		t.Fatalf("expected a well-formed document to validate, got %v", err)
	}
}

func TestParseDocumentRoundTrip(t *testing.T) {
	raw := []byte(`{
		"listeners": [{"listener_type":"ethereum-family","id":"L1","chain_id":1,"relayers":["R1"],"config":{"node_rpc_url":"http://x","bridge_contract_address":"0xabc","finalization_gap":5}}],
		"relayers": [{"relayer_type":"substrate-family","id":"R1","destination_id":"d1","config":{"ws_rpc_endpoint":"ws://y","chain":"paseo"}}]
	}`)
	d, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(d.Listeners) != 1 || d.Listeners[0].ID != "L1" || d.Listeners[0].ChainID != 1 {
		t.Fatalf("unexpected listeners: %+v", d.Listeners)
	}
	var lc EthereumListenerConfig
	if err := json.Unmarshal(d.Listeners[0].Config, &lc); err != nil {
		t.Fatalf("decode listener config: %v", err)
	}
	if lc.FinalizationGap != 5 || lc.BridgeContractAddress != "0xabc" {
		t.Fatalf("unexpected listener config: %+v", lc)
	}
	if err := Validate(d); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}
