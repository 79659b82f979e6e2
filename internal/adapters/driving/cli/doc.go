// Package cli implements the command line interface: sync, search, ask,
// similar, status and serve commands built on cobra. Commands drive the core
// services through the driving ports; adapter wiring happens once in the
// root command's PersistentPreRunE.
package cli
