// Package schedule manages device schedules and their property actions.
//
// A schedule fires inside a daily time window on selected days; each of its
// actions sets one property at the start, at the end or throughout the
// window.
package schedule
