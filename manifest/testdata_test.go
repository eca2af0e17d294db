package manifest_test

const mathlibYAML = `
library: {{.vars.library}}
description: sample arithmetic library
convention: stdcall
exports:
  - name: add
    params: [i32, i32]
  - name: divide
    params: [i32, i32]
  - name: invariant
  - name: vtab_entry
    ordinal: 9
    params: [i32]
`
