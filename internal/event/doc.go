// Package event provides the opera performance record and the date handling
// used to build it.
//
// Listings on the source site print their performance dates in a compact
// comma-separated notation ("Feb 05, 07, 11, 13, 15 mat, 17") where later
// entries omit the month and year established by earlier ones. ParseDateToken
// resolves one entry; ExpandDates folds a whole string left to right, carrying
// the month and year forward and dropping entries it cannot read. Both take the
// current time as a parameter so results never depend on the system clock.
package event
