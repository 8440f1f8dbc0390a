// Package model defines the core data types of the KDD index: documents,
// graph nodes and edges, embeddings, and the index manifest.
package model

import (
	"fmt"
	"strings"
)

// Kind classifies a KDD artifact. The set is closed: each value corresponds
// to the `kind` front-matter field and maps to a dedicated extractor.
type Kind string

const (
	KindEntity         Kind = "entity"
	KindEvent          Kind = "event"
	KindBusinessRule   Kind = "business-rule"
	KindBusinessPolicy Kind = "business-policy"
	KindCrossPolicy    Kind = "cross-policy"
	KindCommand        Kind = "command"
	KindQuery          Kind = "query"
	KindProcess        Kind = "process"
	KindUseCase        Kind = "use-case"
	KindUIView         Kind = "ui-view"
	KindUIComponent    Kind = "ui-component"
	KindRequirement    Kind = "requirement"
	KindObjective      Kind = "objective"
	KindPRD            Kind = "prd"
	KindADR            Kind = "adr"
)

// AllKinds lists every recognized kind in stable order.
var AllKinds = []Kind{
	KindEntity, KindEvent, KindBusinessRule, KindBusinessPolicy,
	KindCrossPolicy, KindCommand, KindQuery, KindProcess, KindUseCase,
	KindUIView, KindUIComponent, KindRequirement, KindObjective,
	KindPRD, KindADR,
}

// kindPrefix maps a kind to the prefix used in composite node IDs.
var kindPrefix = map[Kind]string{
	KindEntity:         "Entity",
	KindEvent:          "Event",
	KindBusinessRule:   "BR",
	KindBusinessPolicy: "BP",
	KindCrossPolicy:    "XP",
	KindCommand:        "CMD",
	KindQuery:          "QRY",
	KindProcess:        "PROC",
	KindUseCase:        "UC",
	KindUIView:         "UIView",
	KindUIComponent:    "UIComp",
	KindRequirement:    "REQ",
	KindObjective:      "OBJ",
	KindPRD:            "PRD",
	KindADR:            "ADR",
}

// ParseKind validates a front-matter kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindPrefix[k]; !ok {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the 15 recognized kinds.
func (k Kind) Valid() bool {
	_, ok := kindPrefix[k]
	return ok
}

// Prefix returns the node-ID prefix for the kind, e.g. "Entity" or "BR".
func (k Kind) Prefix() string {
	if p, ok := kindPrefix[k]; ok {
		return p
	}
	return strings.ToUpper(string(k))
}

// NodeID builds the composite "{Prefix}:{DocumentId}" node identifier.
func (k Kind) NodeID(documentID string) string {
	return k.Prefix() + ":" + documentID
}

// KindForPrefix resolves a node-ID prefix back to its kind.
func KindForPrefix(prefix string) (Kind, bool) {
	for k, p := range kindPrefix {
		if p == prefix {
			return k, true
		}
	}
	return "", false
}

// DocumentID strips the kind prefix from a composite node ID.
func DocumentID(nodeID string) string {
	if i := strings.IndexByte(nodeID, ':'); i >= 0 {
		return nodeID[i+1:]
	}
	return nodeID
}
