package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func openNpy(fileName string) (*os.File, *npyio.Reader, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, nil, err
	}
	r, err := npyio.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "reading npy header of %s", fileName)
	}
	return f, r, nil
}

// readBag reads a one dimensional bag vector stored as int8 or int64.
func readBag(fileName string) ([]int8, error) {
	f, r, err := openNpy(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if len(r.Header.Descr.Shape) != 1 {
		return nil, errors.Errorf("%s: bag must be one dimensional, got shape %v", fileName, r.Header.Descr.Shape)
	}
	switch r.Header.Descr.Type {
	case "|i1", "<i1", "i1":
		var entries []int8
		if err := r.Read(&entries); err != nil {
			return nil, errors.Wrapf(err, "reading %s", fileName)
		}
		return entries, nil
	case "<i8":
		var wide []int64
		if err := r.Read(&wide); err != nil {
			return nil, errors.Wrapf(err, "reading %s", fileName)
		}
		entries := make([]int8, len(wide))
		for i, v := range wide {
			if v < -128 || 127 < v {
				return nil, errors.Errorf("%s: bag entry %d is %d", fileName, i, v)
			}
			entries[i] = int8(v)
		}
		return entries, nil
	}
	return nil, errors.Errorf("%s: unsupported bag dtype %s", fileName, r.Header.Descr.Type)
}

// readScores reads float64 init scores, either a vector or a matrix with one
// row per sample, and flattens them row major.
func readScores(fileName string) ([]float64, error) {
	f, r, err := openNpy(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch len(r.Header.Descr.Shape) {
	case 1:
		var scores []float64
		if err := r.Read(&scores); err != nil {
			return nil, errors.Wrapf(err, "reading %s", fileName)
		}
		return scores, nil
	case 2:
		denseMat := &mat.Dense{}
		if err := r.Read(denseMat); err != nil {
			return nil, errors.Wrapf(err, "reading %s", fileName)
		}
		rows, cols := denseMat.Dims()
		scores := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			scores = append(scores, denseMat.RawRowView(i)...)
		}
		return scores, nil
	}
	return nil, errors.Errorf("%s: init scores must have one or two dimensions, got %v", fileName, r.Header.Descr.Shape)
}
