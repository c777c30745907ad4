// Package snapshot persists the observable state of a group's agents as append-only,
// schema-typed logs: one profile log written at initialization, a status log appended
// after every completed step, and dialog and survey logs appended by the agents.
//
// Two backends implement Writer:
//   - Avro: one object container file per log (profile.avro, dialog.avro, status.avro,
//     survey.avro), snappy-compressed blocks, each append one flushed block
//   - SQLite: one database per group with an append-only table per log
//
// Status and survey schemas depend on the agent variant. Profile and dialog schemas are
// fixed.
package snapshot
