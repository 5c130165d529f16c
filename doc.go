// Package whatfile identifies files by their content rather than their name.
//
// Detection itself lives in the [github.com/gobeaver/whatfile/detector]
// package: a chain of detectors probing a bounded window of the input for
// magic numbers and container structure (ZIP based Office and OpenDocument
// files, ISO base media files, compound files, PDF, XML dialects and a few
// hundred plain signatures). This package wraps that engine for files on
// disk.
//
// # Basic Usage
//
//	i, err := whatfile.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := i.InspectFile(ctx, "upload.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(r.Summary())
//	// upload.bin (1.2 MiB): application/pdf .pdf
//
// A [Report] carries the detected [detector.Type], the type the file name
// claims and whether the two disagree. Extensions naming the same format,
// such as .jpg and .jpeg, are not reported as a mismatch.
//
// # Batches
//
// [Walk] expands files and directories into a list of paths, filtered by a
// [Selector]. [Inspector.InspectAll] inspects them concurrently and returns
// the reports in input order:
//
//	sel, _ := whatfile.NewSelector([]string{"*.jpg", "*.png"}, nil)
//	paths, _ := whatfile.Walk(ctx, sel, []string{"./photos"}, true)
//	reports, err := i.InspectAll(ctx, paths)
//
// # Configuration
//
// Configuration is read from BEAVER_WHATFILE_* environment variables, see
// [Config]. A process wide Inspector is available through [Init] and
// [Default]:
//
//	whatfile.Init()
//	r, err := whatfile.InspectFile(ctx, "upload.bin")
//
// # Errors
//
// Per file failures are returned as *[PathError] wrapping the sentinel
// errors of this package, e.g.
//
//	if whatfile.IsNotExist(err) {
//	    // handle missing file
//	}
package whatfile
