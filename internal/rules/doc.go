// Package rules manages rules and actions on the Ayla rules service.
//
// A rule pairs an expression with a set of actions:
//
//	CONNECTION(AC000W000000001, offline) && DATAPOINT(AC000W000000002, temp) > 30
//	        │
//	        ▼
//	  actions ─► DATAPOINT | URL | EMAIL | AMS_SMS | AMS_EMAIL | AMS_PUSH
//	                                        └─► message destinations
//
// Expressions are built with Connection, Registration, Location and
// Datapoint and combined with And and Or. RuleBuilder and ActionBuilder
// create any missing actions and destinations before the rule itself.
package rules
