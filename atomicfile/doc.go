/*
Package atomicfile writes a file so that readers see either the old
content or the complete new content, never a partially written file.

Data is written to a temporary file in the destination directory which
is renamed over the destination in Close(). If Write() or Close() fail,
the temporary file is removed and the destination is left untouched.

	func saveData(path string, data []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// a no-op after successful Close()
		defer f.RemoveIfNotClosed()

		if _, err = f.Write(data); err != nil {
			return err
		}
		return f.Close()
	}
*/
package atomicfile
