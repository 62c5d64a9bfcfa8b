// Package synthmem generates synthetic personal knowledge bases for training
// and evaluating memory-augmented agents.
//
// Each generated scenario is a consistent knowledge graph of people and
// entities, rendered into a set of cross-linked markdown documents from the
// perspective of selected focal person nodes. Alongside the documents the
// pipeline derives multi-hop retrieval queries with full provenance paths,
// and simulates update scenarios whose expected effect is captured as an
// exact, invertible document diff.
//
// The Pipeline type orchestrates the whole run: graph construction through a
// text generation client, validation, rendering, query derivation, phrasing,
// and update simulation, processing focal nodes concurrently. Graphs can
// also be supplied externally through Generate, which needs no client.
package synthmem
