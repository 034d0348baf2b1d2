package prompts

type templateSet struct {
	marketIntro string
	stockHeader string
	newsHeader  string
	noHeadlines string
	marketAsk   string
	sectorIntro string // takes the sector name
	sectorAsk   string
}

var english = templateSet{
	marketIntro: "Analyze the following market data and provide a concise summary.",
	stockHeader: "Stock Data:",
	newsHeader:  "Recent Market News:",
	noHeadlines: "(no headlines retrieved)",
	marketAsk: `Please provide:
1. Brief overview of stock performance
2. Key market trends and implications
3. Notable news impact

Write in plain paragraphs separated by blank lines. Do not use tables or bullet lists.`,
	sectorIntro: "Analyze these %s sector stocks:",
	sectorAsk:   "Provide a brief sector-specific analysis in plain paragraphs.",
}

var spanish = templateSet{
	marketIntro: "Eres un analista financiero experto. Redacta en español un informe de inteligencia de mercado a partir de los siguientes datos.",
	stockHeader: "Datos de acciones:",
	newsHeader:  "Noticias recientes del mercado:",
	noHeadlines: "(sin titulares disponibles)",
	marketAsk: `El informe debe incluir:
1. Resumen ejecutivo del comportamiento de las acciones
2. Tendencias clave del mercado y sus implicaciones
3. Impacto de las noticias más relevantes
4. Perspectiva del mercado a corto plazo

Redacta solo párrafos completos separados por líneas en blanco, con lenguaje formal. No uses viñetas, listas, tablas ni citas textuales.`,
	sectorIntro: "Analiza estas acciones del sector %s:",
	sectorAsk:   "Ofrece un breve análisis específico del sector, en párrafos completos y en español.",
}

func (b Builder) templates() templateSet {
	if b.Language == Spanish {
		return spanish
	}
	return english
}
