// Package harness runs a command-line tool through a catalogue of scenarios
// and checks its output against checked-in baselines.
//
// Each scenario invokes the tool once and compares up to three channels:
// stdout, stderr and a file the tool generates. A channel's actual value
// may pass through a transform chain first to mask non-deterministic
// content; the baseline is always read verbatim.
//
// # Catalogue Format
//
// Catalogues are YAML (or CUE with the same shape):
//
//	binary:
//	  - ../../build/uncrustify
//	  - ../../build/Release/uncrustify
//	build:
//	  cache: ../../build/CMakeCache.txt
//	  type: release
//	results: Results
//	env:
//	  - UNCRUSTIFY_CONFIG=${null}
//	scenarios:
//	  - name: show-config
//	    args: [--show-config]
//	    stdout:
//	      expected: Output/show_config.txt
//	      transform:
//	        - regex: '\# Uncrustify.+'
//	          replace: ''
//	  - name: p
//	    args: [-c, '${dir}/Config/mini_nd.cfg', -p, '${results}/p.txt']
//	    generated:
//	      expected: Output/p.txt
//	      result: '${results}/p.txt'
//	  - name: L
//	    each: ['9', '21', '25']
//	    args: [-c, '${null}', -L, '${each}']
//	    stderr:
//	      expected: 'Output/${each}.txt'
//
// Relative paths resolve against the catalogue's directory. Placeholders
// ${dir}, ${results}, ${null} and ${each} are expanded in args, paths and
// env values.
//
// # Outcomes
//
// On mismatch the transformed actual value is left in the results
// directory and the operator gets either a pointer to it or, in diff mode,
// a full line diff. In apply mode the one apply-target channel of each
// scenario (stdout, else stderr, else generated) has its baseline rewritten
// instead of failing.
//
// Scenarios never affect each other: every one runs, and the run passes
// only if all of them pass.
package harness
