package block

// Opacity - класс прозрачности блока для отсечения граней
type Opacity uint8

const (
	// Empty - пустота, грани соседей всегда видны
	Empty Opacity = iota
	// Opaque - сплошной блок, закрывает соседние грани
	Opaque
	// Translucent - полупрозрачный блок (вода, лёд)
	Translucent
)

// String возвращает имя класса прозрачности
func (o Opacity) String() string {
	switch o {
	case Empty:
		return "empty"
	case Opaque:
		return "opaque"
	case Translucent:
		return "translucent"
	default:
		return "unknown"
	}
}

// AtlasTile - координаты тайла в текстурном атласе
type AtlasTile struct {
	U uint32
	V uint32
}

// BlockBehavior определяет свойства блока, нужные генератору и мешеру
type BlockBehavior interface {
	ID() BlockID
	Name() string
	Opacity() Opacity
	Texture(face Face) AtlasTile
}

// FaceVisible решает, видна ли грань блока self, обращённая к соседу neighbor.
// Грань рисуется, если сосед пуст, либо сосед полупрозрачен и отличается по типу.
func FaceVisible(self, neighbor BlockID) bool {
	if OpacityOf(self) == Empty {
		return false
	}
	switch OpacityOf(neighbor) {
	case Empty:
		return true
	case Translucent:
		return self != neighbor
	default:
		return false
	}
}
