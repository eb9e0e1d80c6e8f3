// Package rate throttles failed attempts with fixed-window counters: INCR plus an
// EXPIRE on the first hit. The fake backend uses it to lock out repeated bad logins.
package rate
