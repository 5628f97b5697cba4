// Package pkg provides the core libraries for mosaic tile stitching.
//
// # Overview
//
// Mosaic turns raw microscope acquisitions into a composited canvas: tiles
// carry a stage position and lazy pixel data, placement resolution snaps them
// onto a shared origin-anchored frame, and compositing materializes the
// result chunk by chunk. The pkg directory is organized by stage:
//
//  1. [geom], [tile], [array] - Domain primitives (coordinates, boxes, dense data)
//  2. [stitch] - Placement resolution (normalization, overlap removal, gap closing)
//  3. [taskgraph], [compose] - Deferred compositing (task graph, chunk plans)
//  4. [io], [errors], [observability], [buildinfo] - Supporting infrastructure
//
// # Architecture
//
// The typical data flow through mosaic:
//
//	Manifest (tiles + stage positions)
//	         ↓
//	[tile]   5D boxes with lazy loaders
//	         ↓
//	[stitch] resolved pixel-space placements
//	         ↓
//	[compose] chunk task graph
//	         ↓
//	[taskgraph] executor (sequential or pooled)
//	         ↓
//	Chunk writer (raw files, object stores, ...)
//
// Placement resolution and plan construction never touch pixel data; loading
// happens only when chunks are materialized, and each tile loads at most once
// per execution.
package pkg
