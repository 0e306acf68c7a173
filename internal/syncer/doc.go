// Package syncer implementa el controlador de sincronización entre el
// catálogo y el servicio remoto de autorización.
//
// El controlador es dueño del cache local de paths (paths.Tree) y de todo
// el estado del protocolo: la secuencia de envelopes, el último seq aplicado
// localmente (lastSent), y la confirmación de sincronía con el remoto. Cada
// evento de catálogo produce exactamente un envelope que se aplica al cache
// y se empuja al remoto best-effort; los fallos de push no se reintentan
// inline, los sana la reconciliación periódica reenviando la imagen completa
// cuando el seq visto por el remoto no coincide con lastSent.
//
// Durante la construcción del snapshot inicial (el crawl del catálogo) los
// envelopes se acumulan en una cola pendiente y se drenan en orden una única
// vez al completarse. Si el snapshot falla, el controlador queda en estado
// terminal y cada evento posterior devuelve el error almacenado.
package syncer
