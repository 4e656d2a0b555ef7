package ifd

// List is an ordered sequence of directories as they appear in a container.
type List []*Directory

// Classify partitions a list into primary and auxiliary (thumbnail) directories.  A
// directory is auxiliary only if its subfile type is 1 and the container holds more than
// one directory, so a lone reduced-resolution directory is still addressable.
func Classify(l List) (primary, auxiliary List, err error) {
	for _, d := range l {
		subfile, err := d.SubfileType()
		if err != nil {
			return nil, nil, err
		}
		if subfile == 1 && len(l) > 1 {
			auxiliary = append(auxiliary, d)
		} else {
			primary = append(primary, d)
		}
	}
	return primary, auxiliary, nil
}

// Fill fills every directory of the list.
func (l List) Fill() error {
	for _, d := range l {
		if err := d.ensureFilled(); err != nil {
			return err
		}
	}
	return nil
}
