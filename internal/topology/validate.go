package topology

import "fmt"

// ValidationError names the failed rule from §4.6 so operators can fix the
// configuration without guessing which invariant broke.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func ruleErr(rule, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Validate checks all rules V1-V8 of §4.6. It returns the first violation
// found, naming the rule, per spec (any violation is a fatal startup error
// naming the rule).
func Validate(doc *Document) error {
	if err := validateListenerIDsUnique(doc); err != nil {
		return err
	}
	if err := validateChainIDsUnique(doc); err != nil {
		return err
	}
	if err := validateListenersHaveRelayers(doc); err != nil {
		return err
	}
	relayerByID, err := validateRelayerIDsUnique(doc)
	if err != nil {
		return err
	}
	if err := validateListenerRelayerRefsExist(doc, relayerByID); err != nil {
		return err
	}
	if err := validateDestinationIDsUnique(doc); err != nil {
		return err
	}
	if err := validateEveryRelayerUsed(doc); err != nil {
		return err
	}
	if err := validateFamilyClosedSet(doc); err != nil {
		return err
	}
	return nil
}

func validateListenerIDsUnique(doc *Document) error {
	seen := make(map[string]bool, len(doc.Listeners))
	for _, l := range doc.Listeners {
		if seen[l.ID] {
			return ruleErr("V1", "listener id %q is not unique", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

func validateChainIDsUnique(doc *Document) error {
	seen := make(map[uint32]string, len(doc.Listeners))
	for _, l := range doc.Listeners {
		if prev, ok := seen[l.ChainID]; ok {
			return ruleErr("V2", "chain_id %d used by both %q and %q", l.ChainID, prev, l.ID)
		}
		seen[l.ChainID] = l.ID
	}
	return nil
}

func validateListenersHaveRelayers(doc *Document) error {
	for _, l := range doc.Listeners {
		if len(l.RelayerIDs) == 0 {
			return ruleErr("V3", "listener %q has an empty relayers list", l.ID)
		}
	}
	return nil
}

func validateRelayerIDsUnique(doc *Document) (map[string]RelayerSpec, error) {
	byID := make(map[string]RelayerSpec, len(doc.Relayers))
	for _, r := range doc.Relayers {
		if _, ok := byID[r.ID]; ok {
			return nil, ruleErr("V5", "relayer id %q is not unique", r.ID)
		}
		byID[r.ID] = r
	}
	return byID, nil
}

func validateListenerRelayerRefsExist(doc *Document, byID map[string]RelayerSpec) error {
	for _, l := range doc.Listeners {
		for _, rid := range l.RelayerIDs {
			if _, ok := byID[rid]; !ok {
				return ruleErr("V4", "listener %q references undefined relayer %q", l.ID, rid)
			}
		}
	}
	return nil
}

func validateDestinationIDsUnique(doc *Document) error {
	seen := make(map[string]string, len(doc.Relayers))
	for _, r := range doc.Relayers {
		if prev, ok := seen[r.DestinationID]; ok {
			return ruleErr("V6", "destination_id %q used by both %q and %q", r.DestinationID, prev, r.ID)
		}
		seen[r.DestinationID] = r.ID
	}
	return nil
}

func validateEveryRelayerUsed(doc *Document) error {
	used := make(map[string]bool, len(doc.Relayers))
	for _, l := range doc.Listeners {
		for _, rid := range l.RelayerIDs {
			used[rid] = true
		}
	}
	for _, r := range doc.Relayers {
		if !used[r.ID] {
			return ruleErr("V7", "relayer %q is defined but referenced by no listener", r.ID)
		}
	}
	return nil
}

func validateFamilyClosedSet(doc *Document) error {
	for _, l := range doc.Listeners {
		if l.ListenerType != EthereumFamily && l.ListenerType != SubstrateFamily {
			return ruleErr("V8", "listener %q has unknown listener_type %q", l.ID, l.ListenerType)
		}
	}
	for _, r := range doc.Relayers {
		if r.RelayerType != EthereumFamily && r.RelayerType != SubstrateFamily {
			return ruleErr("V8", "relayer %q has unknown relayer_type %q", r.ID, r.RelayerType)
		}
	}
	return nil
}
