// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

// Domain is one of the four fixed expansion lenses applied round-robin by
// tree depth. Nodes never choose their own domain.
type Domain string

const (
	DomainExplore   Domain = "explore"
	DomainChallenge Domain = "challenge"
	DomainEvolve    Domain = "evolve"
	DomainIntegrate Domain = "integrate"
)

// domainCycle is the fixed round-robin order. Cycle length is always 4,
// independent of branching factor and depth.
var domainCycle = [4]Domain{DomainExplore, DomainChallenge, DomainEvolve, DomainIntegrate}

// String returns the string representation of the domain.
func (d Domain) String() string {
	return string(d)
}

// Valid reports whether d is one of the four closed variants.
func (d Domain) Valid() bool {
	switch d {
	case DomainExplore, DomainChallenge, DomainEvolve, DomainIntegrate:
		return true
	}
	return false
}

// DomainForDepth returns the domain assigned to a depth level.
// Depth 0 (the root) is always explore; deeper levels cycle in fixed order.
func DomainForDepth(depth int) Domain {
	if depth <= 0 {
		return DomainExplore
	}
	return domainCycle[(depth-1)%len(domainCycle)]
}

// NodeType is the lifecycle role of a node in the reasoning tree.
type NodeType string

const (
	NodeTypeRoot        NodeType = "root"
	NodeTypeExploration NodeType = "exploration"
	NodeTypeChallenge   NodeType = "challenge"
	NodeTypeEvolution   NodeType = "evolution"
	NodeTypeIntegration NodeType = "integration"
	NodeTypeLeaf        NodeType = "leaf"
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	return string(t)
}

// NodeTypeForDomain is the total mapping from expansion domain to the node
// type of children generated under that domain.
func NodeTypeForDomain(d Domain) NodeType {
	switch d {
	case DomainChallenge:
		return NodeTypeChallenge
	case DomainEvolve:
		return NodeTypeEvolution
	case DomainIntegrate:
		return NodeTypeIntegration
	default:
		return NodeTypeExploration
	}
}
