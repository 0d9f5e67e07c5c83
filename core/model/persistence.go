package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// 使用例:
//
//	clf := tree.NewDecisionTreeClassifier()
//	// ... モデルの学習 ...
//	err := model.SaveModel(clf, "tree.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	return SaveModelToWriter(model, file)
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	clf := tree.NewDecisionTreeClassifier()
//	err := model.LoadModel(clf, "tree.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if model == nil {
		return errors.NewPointerError("SaveModel", "model")
	}
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if model == nil {
		return errors.NewPointerError("LoadModel", "model")
	}
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
