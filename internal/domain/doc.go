// Package domain contains the core business entities of the study platform:
// cards and their scheduling state, collections and their lineage,
// distribution grants, study sessions and import records. It also defines the
// error taxonomy shared by every service. The package has no knowledge of
// storage or transport.
package domain
