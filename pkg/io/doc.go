// Package io provides JSON import and export for resolved tile placements.
//
// # Overview
//
// This package serializes the outcome of placement resolution: where each
// tile sits on the canvas, in which coordinate space, and where it came from.
// The format is designed for:
//
//   - Handing resolved placements to downstream writers that composite with
//     their own data access
//   - Auditing a resolution run (corrected position vs. acquisition origin)
//   - Round-trip preservation: export, inspect, re-import identically
//
// # JSON Format
//
// The format has one top-level array:
//
//	{
//	  "tiles": [
//	    {
//	      "name": "fov0",
//	      "space": "pixel",
//	      "top_left": [0, 0, 0],
//	      "shape": [1, 2, 1, 512, 512],
//	      "pixel_size": [0.65, 0.65, 1],
//	      "origin": [103.2, 58.9, 0]
//	    }
//	  ]
//	}
//
// top_left, pixel_size and origin are [x, y, z]; shape is the discrete
// (t, c, z, y, x) extent. origin is the pre-correction acquisition position
// in real space.
//
// Imported tiles carry geometry only; they have no data loader attached.
package io
