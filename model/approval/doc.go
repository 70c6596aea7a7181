// Package approval defines the data model of the reconciliation engine: the
// pending approval item, its composite identity and the closed risk-level and
// decision-verb vocabularies shared by every other package.
package approval
