// Package services orchestrates the loader's commands.
//
// LoadService runs a load as three committed phases on one session:
//
//  1. schema: drop and recreate the namespace, create tables in dependency order
//  2. load: copy direct tables, reconcile staged tables, validate integrity
//  3. index: create secondary indexes
//
// A failing phase is rolled back and later phases do not run, so the
// namespace is left in the state the last committed phase produced.
//
// SetupService prepares a server for loading: it creates the target
// database when missing and the empty namespace.
package services
