// Command hgbm-viz renders a persisted model's trees to graphviz
// files, in the teacher's RenderTrees idiom (extra_boost/ebl/ebooster.go).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/tarstars/hgbm/boost"
)

func handleError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// GraphConfig names the model to load and where to dump its trees, in
// the teacher's GraphConfig shape (extra_boost/extra_boost_main/main.go).
type GraphConfig struct {
	FileNameModel     string `json:"filename_model"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	DumpPrefix        string `json:"dump_prefix"`
}

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	handleError(err)
	defer func() { handleError(file.Close()) }()

	handleError(json.NewDecoder(file).Decode(out))
}

func renderTrees(model *boost.Model, dumpPrefix, figureType, picturesDirectory string) {
	for treeInd, currentTree := range model.Trees {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, treeInd, figureType)
		handleError(currentTree.RenderFile(path.Join(picturesDirectory, filename), figureType))
	}
}

func graph(srcConfig string) {
	var gc GraphConfig
	decodeConfig(srcConfig, &gc)

	model, err := boost.Load(gc.FileNameModel)
	handleError(err)

	renderTrees(model, gc.DumpPrefix, gc.FigureType, gc.PicturesDirectory)
}

func main() {
	config := flag.String("config", "hgbm_viz_config.json", "a config file for the run of the program")
	flag.Parse()

	graph(*config)
}
