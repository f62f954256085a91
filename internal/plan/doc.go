// Package plan loads activity plans written in CUE.
//
// A plan file declares a single top-level "plan" struct:
//
//	plan: {
//		name:       "breakfast"
//		model:      "banananation"
//		start_time: "2030-01-01T00:00:00Z"
//		duration:   "1h"
//		activities: [
//			{id: "bite", type: "BiteBanana", start: "10m", arguments: {biteSize: 2}},
//		]
//	}
//
// Plans are unified with an embedded schema before they are decoded, so
// structural mistakes are reported with CUE source positions. Semantic
// checks against a mission model (activity types, arguments) are done by
// Validate, which reports every problem at once.
package plan
